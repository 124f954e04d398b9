package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operations accepted by the request applier.
const (
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
)

// Request is a single line of a request file. Amounts are decimal strings.
type Request struct {
	Op        string  `json:"op"`
	Account   string  `json:"account"`
	Amount0   string  `json:"amount_0,omitempty"`
	Asset0    AssetID `json:"asset_0"`
	Amount1   string  `json:"amount_1,omitempty"`
	Asset1    AssetID `json:"asset_1"`
	Deadline  uint64  `json:"deadline,omitempty"`
	Nonce     uint64  `json:"nonce,omitempty"`
	Signature string  `json:"signature,omitempty"`
}

// SigningPayload returns the canonical bytes a signature covers: the request
// encoded as JSON with the signature field cleared.
func (r Request) SigningPayload() ([]byte, error) {
	r.Signature = ""
	r.Op = strings.ToLower(strings.TrimSpace(r.Op))
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return data, nil
}
