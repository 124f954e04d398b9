package ledger

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace of the in-memory ledger.
const Codespace = "ledger"

var (
	ErrUnknownAsset        = errorsmod.Register(Codespace, 2, "unknown asset")
	ErrAssetExists         = errorsmod.Register(Codespace, 3, "asset already exists")
	ErrInsufficientBalance = errorsmod.Register(Codespace, 4, "insufficient balance")
	ErrOverflow            = errorsmod.Register(Codespace, 5, "balance overflow")
	ErrBelowMinimum        = errorsmod.Register(Codespace, 6, "balance below minimum")
	ErrInvalidGenesis      = errorsmod.Register(Codespace, 7, "invalid genesis")
)
