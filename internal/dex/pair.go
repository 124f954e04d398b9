package dex

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"dexEngine/internal/model"
)

// AssetPair is the order-independent key of a pool. Asset0 < Asset1 always holds
// for pairs produced by Canonicalize.
type AssetPair struct {
	Asset0 model.AssetID
	Asset1 model.AssetID
}

// Canonicalize orders two distinct assets so (a, b) and (b, a) map to the same pair.
func Canonicalize(a, b model.AssetID) (AssetPair, error) {
	if a == b {
		return AssetPair{}, ErrIdenticalAssets.Wrapf("asset %s", a)
	}
	if b < a {
		a, b = b, a
	}
	return AssetPair{Asset0: a, Asset1: b}, nil
}

func (p AssetPair) String() string {
	return fmt.Sprintf("%s/%s", p.Asset0, p.Asset1)
}

// Contains reports whether asset is one side of the pair.
func (p AssetPair) Contains(asset model.AssetID) bool {
	return asset == p.Asset0 || asset == p.Asset1
}

// Other returns the opposite side of the pair.
func (p AssetPair) Other(asset model.AssetID) model.AssetID {
	if asset == p.Asset0 {
		return p.Asset1
	}
	return p.Asset0
}

func (p AssetPair) key() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[:4], uint32(p.Asset0))
	binary.BigEndian.PutUint32(buf[4:], uint32(p.Asset1))
	return buf
}

func pairFromKey(key []byte) (AssetPair, error) {
	if len(key) != 8 {
		return AssetPair{}, fmt.Errorf("invalid pair key length %d", len(key))
	}
	return AssetPair{
		Asset0: model.AssetID(binary.BigEndian.Uint32(key[:4])),
		Asset1: model.AssetID(binary.BigEndian.Uint32(key[4:])),
	}, nil
}

// Value is an amount of a specific asset.
type Value struct {
	Amount *uint256.Int
	Asset  model.AssetID
}

// OrderValues sorts two (amount, asset) values by asset so the first result
// always carries the smaller asset id.
func OrderValues(amountA *uint256.Int, assetA model.AssetID, amountB *uint256.Int, assetB model.AssetID) (Value, Value) {
	a := Value{Amount: amountA, Asset: assetA}
	b := Value{Amount: amountB, Asset: assetB}
	if b.Asset < a.Asset {
		return b, a
	}
	return a, b
}
