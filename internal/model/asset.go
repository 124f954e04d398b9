package model

import (
	"fmt"
	"strconv"
	"strings"
)

// AssetID identifies a fungible asset, either the native currency or an issued token.
type AssetID uint32

func (id AssetID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseAssetID parses a decimal asset identifier.
func ParseAssetID(input string) (AssetID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("asset id is empty")
	}
	val, err := strconv.ParseUint(input, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid asset id %q: %w", input, err)
	}
	return AssetID(val), nil
}

// AssetMeta captures asset metadata held by the ledger.
type AssetMeta struct {
	ID       AssetID `json:"id"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals uint8   `json:"decimals"`
}
