package runner

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"dexEngine/internal/dex"
	"dexEngine/internal/model"
)

// Call is a parsed request ready for the engine.
//
// For add_liquidity Amount0/Amount1 are the deposits of Asset0/Asset1. For
// remove_liquidity Amount0 is the number of pool tokens to burn. For swap
// Amount0 of Asset0 is sold for Asset1.
type Call struct {
	Op       string
	Origin   dex.Origin
	Amount0  *uint256.Int
	Asset0   model.AssetID
	Amount1  *uint256.Int
	Asset1   model.AssetID
	Deadline uint64
}

// ParseRequest validates the encoding of a request. Domain checks are left
// to the engine.
func ParseRequest(req model.Request) (Call, error) {
	op := strings.ToLower(strings.TrimSpace(req.Op))
	switch op {
	case model.OpAddLiquidity, model.OpRemoveLiquidity, model.OpSwap:
	default:
		return Call{}, fmt.Errorf("unknown op %q", req.Op)
	}

	var account common.Address
	if strings.TrimSpace(req.Account) != "" {
		var err error
		if account, err = ParseAddress(req.Account); err != nil {
			return Call{}, err
		}
	}

	payload, err := req.SigningPayload()
	if err != nil {
		return Call{}, err
	}
	var sig []byte
	if req.Signature != "" {
		if sig, err = hexutil.Decode(req.Signature); err != nil {
			return Call{}, fmt.Errorf("invalid signature: %w", err)
		}
	}

	amount0, err := dex.ParseAmount(req.Amount0)
	if err != nil {
		return Call{}, fmt.Errorf("amount_0: %w", err)
	}
	amount1 := new(uint256.Int)
	if op == model.OpAddLiquidity {
		if amount1, err = dex.ParseAmount(req.Amount1); err != nil {
			return Call{}, fmt.Errorf("amount_1: %w", err)
		}
	}

	return Call{
		Op:       op,
		Origin:   dex.Origin{Account: account, Nonce: req.Nonce, Payload: payload, Signature: sig},
		Amount0:  amount0,
		Asset0:   req.Asset0,
		Amount1:  amount1,
		Asset1:   req.Asset1,
		Deadline: req.Deadline,
	}, nil
}

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
