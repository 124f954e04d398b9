package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"dexEngine/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolMeta      model.PoolMeta
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	Volume0       *big.Int
	Volume1       *big.Int
	// Swap input per side, kept so fees can be recomputed exactly.
	In0  *big.Int
	In1  *big.Int
	Fee0 *big.Int
	Fee1 *big.Int
	// Reserves after the latest event of the window; nil until one is seen.
	Reserve0 *big.Int
	Reserve1 *big.Int
	LastTS   uint64
	LastSeq  uint64
}

func NewAccumulator(record model.StoredEventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolMeta:    record.PoolMeta,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		In0:         big.NewInt(0),
		In1:         big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
		LastTS:      record.Timestamp,
		LastSeq:     record.Seq,
	}
}

func (a *Accumulator) AddEvent(record model.StoredEventRecord) error {
	latest := record.Timestamp > a.LastTS || (record.Timestamp == a.LastTS && record.Seq >= a.LastSeq)
	if latest {
		a.LastTS = record.Timestamp
		a.LastSeq = record.Seq
	}

	switch record.EventName {
	case model.EventSwapped:
		var swap model.SwappedData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap, latest)
	case model.EventLiquidityAdded:
		var added model.LiquidityAddedData
		if err := json.Unmarshal(record.Decoded, &added); err != nil {
			return fmt.Errorf("decode liquidity added: %w", err)
		}
		a.DepositCount++
		return a.setReserves(added.Reserve0, added.Reserve1, latest)
	case model.EventLiquidityRemoved:
		var removed model.LiquidityRemovedData
		if err := json.Unmarshal(record.Decoded, &removed); err != nil {
			return fmt.Errorf("decode liquidity removed: %w", err)
		}
		a.WithdrawCount++
		return a.setReserves(removed.Reserve0, removed.Reserve1, latest)
	default:
		return nil
	}
}

func (a *Accumulator) applySwap(swap model.SwappedData, latest bool) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseBigInt(swap.AmountOut)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(swap.Fee)
	if err != nil {
		return err
	}

	switch swap.AssetIn {
	case a.PoolMeta.Asset0:
		a.Volume0.Add(a.Volume0, amountIn)
		a.Volume1.Add(a.Volume1, amountOut)
		a.In0.Add(a.In0, amountIn)
		a.Fee0.Add(a.Fee0, fee)
	case a.PoolMeta.Asset1:
		a.Volume1.Add(a.Volume1, amountIn)
		a.Volume0.Add(a.Volume0, amountOut)
		a.In1.Add(a.In1, amountIn)
		a.Fee1.Add(a.Fee1, fee)
	default:
		return fmt.Errorf("swap asset %s not in pool %s", swap.AssetIn, a.PoolMeta.PoolToken)
	}

	a.SwapCount++
	return a.setReserves(swap.Reserve0, swap.Reserve1, latest)
}

func (a *Accumulator) setReserves(reserve0, reserve1 string, latest bool) error {
	if !latest {
		return nil
	}
	r0, err := parseBigInt(reserve0)
	if err != nil {
		return err
	}
	r1, err := parseBigInt(reserve1)
	if err != nil {
		return err
	}
	a.Reserve0, a.Reserve1 = r0, r1
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return parsed, nil
}
