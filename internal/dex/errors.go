package dex

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace of the exchange engine.
const Codespace = "dex"

// Input validation.
var (
	ErrIdenticalAssets = errorsmod.Register(Codespace, 2, "identical assets")
	ErrInvalidAmount   = errorsmod.Register(Codespace, 3, "invalid amount")
	ErrDeadlinePassed  = errorsmod.Register(Codespace, 4, "deadline passed")
	ErrBadOrigin       = errorsmod.Register(Codespace, 5, "bad origin")
	ErrInvalidFee      = errorsmod.Register(Codespace, 6, "invalid fee")
)

// Resource not found.
var (
	ErrInvalidAsset = errorsmod.Register(Codespace, 10, "invalid asset")
	ErrNoPool       = errorsmod.Register(Codespace, 11, "no pool")
	ErrEmptyPool    = errorsmod.Register(Codespace, 12, "empty pool")
)

// Resource conflict.
var (
	ErrAssetAlreadyExists = errorsmod.Register(Codespace, 20, "asset already exists")
	ErrPoolAlreadyExists  = errorsmod.Register(Codespace, 21, "pool already exists")
)

// Insufficient funds.
var (
	ErrInsufficientBalance      = errorsmod.Register(Codespace, 30, "insufficient balance")
	ErrInsufficientOutputAmount = errorsmod.Register(Codespace, 31, "insufficient output amount")
)

// Arithmetic and invariant violations.
var (
	ErrOverflow         = errorsmod.Register(Codespace, 40, "arithmetic overflow")
	ErrDivisionByZero   = errorsmod.Register(Codespace, 41, "division by zero")
	ErrInvalidPoolState = errorsmod.Register(Codespace, 42, "invalid pool state")
)

// ledgerError tags a failed ledger mutation with the engine error kind it
// stands for. The ledger error stays in the chain.
func ledgerError(kind *errorsmod.Error, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
