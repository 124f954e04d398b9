package model

import "time"

// PoolWindowMetrics stores aggregated metrics for a pool window.
type PoolWindowMetrics struct {
	PoolToken      AssetID
	Asset0         AssetID
	Asset1         AssetID
	WindowSizeSecs int64
	WindowStart    time.Time
	WindowEnd      time.Time
	SwapCount      uint64
	DepositCount   uint64
	WithdrawCount  uint64
	Volume0        string
	Volume1        string
	Fee0           string
	Fee1           string
	Reserve0       *string
	Reserve1       *string
	FeeRate0       *string
	FeeRate1       *string
	APR            *string
}
