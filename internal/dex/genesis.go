package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexEngine/internal/model"
)

// GenesisPool seeds one pool. Amounts are decimal strings.
type GenesisPool struct {
	Amount0  string         `json:"amount_0"`
	Asset0   model.AssetID  `json:"asset_0"`
	Amount1  string         `json:"amount_1"`
	Asset1   model.AssetID  `json:"asset_1"`
	Provider common.Address `json:"provider"`
}

// GenesisConfig lists the pools that exist before the first request.
type GenesisConfig struct {
	Pools []GenesisPool `json:"pools"`
}

// InitGenesis creates every configured pool from its provider's balances.
// Each pair may appear only once and must not already have a pool. All pools
// are created in one operation: a failing entry leaves no pool behind.
func (e *Engine) InitGenesis(cfg GenesisConfig) error {
	type seed struct {
		entry            GenesisPool
		amount0, amount1 *uint256.Int
	}
	seeds := make([]seed, 0, len(cfg.Pools))
	for i, entry := range cfg.Pools {
		amount0, err := ParseAmount(entry.Amount0)
		if err != nil {
			return fmt.Errorf("genesis pool %d: %w", i, err)
		}
		amount1, err := ParseAmount(entry.Amount1)
		if err != nil {
			return fmt.Errorf("genesis pool %d: %w", i, err)
		}
		seeds = append(seeds, seed{entry: entry, amount0: amount0, amount1: amount1})
	}
	if len(seeds) == 0 {
		return nil
	}

	return e.apply("genesis", func(op *operation) error {
		for i, s := range seeds {
			if err := e.seedPool(op, s.entry, s.amount0, s.amount1); err != nil {
				return fmt.Errorf("genesis pool %d: %w", i, err)
			}
		}
		return nil
	})
}

func (e *Engine) seedPool(op *operation, entry GenesisPool, amount0, amount1 *uint256.Int) error {
	pair, err := Canonicalize(entry.Asset0, entry.Asset1)
	if err != nil {
		return err
	}
	if amount0.IsZero() || amount1.IsZero() {
		return ErrInvalidAmount.Wrap("genesis amounts must be positive")
	}
	if _, exists, err := op.txn.Get(pair); err != nil {
		return err
	} else if exists {
		return ErrPoolAlreadyExists.Wrapf("pair %s", pair)
	}
	return e.addLiquidity(op, entry.Provider, amount0, entry.Asset0, amount1, entry.Asset1)
}

// ParseAmount parses a non-negative decimal amount.
func ParseAmount(input string) (*uint256.Int, error) {
	if input == "" {
		return nil, ErrInvalidAmount.Wrap("amount is empty")
	}
	v, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, ErrInvalidAmount.Wrapf("parse %q: %s", input, err)
	}
	return v, nil
}
