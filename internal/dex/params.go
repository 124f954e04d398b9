package dex

import (
	"github.com/holiman/uint256"
)

// Fee is the multiplicative swap fee, applied as input * Numerator / Denominator.
// 997/1000 leaves 99.7% of the input effective, a 0.3% fee.
type Fee struct {
	Numerator   uint64
	Denominator uint64
}

func DefaultFee() Fee {
	return Fee{Numerator: 997, Denominator: 1000}
}

func (f Fee) Validate() error {
	if f.Denominator == 0 {
		return ErrInvalidFee.Wrap("denominator must be positive")
	}
	if f.Numerator == 0 {
		return ErrInvalidFee.Wrap("numerator must be positive")
	}
	if f.Numerator > f.Denominator {
		return ErrInvalidFee.Wrapf("numerator %d exceeds denominator %d", f.Numerator, f.Denominator)
	}
	return nil
}

// AmountOut applies the constant-product formula:
//
//	out = in*num*reserveOut / (reserveIn*den + in*num)
//
// reserveIn is the input-side reserve before the input lands. The result
// rounds down.
func (f Fee) AmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	effective, err := safeMul(amountIn, uint256.NewInt(f.Numerator))
	if err != nil {
		return nil, err
	}
	numerator, err := safeMul(effective, reserveOut)
	if err != nil {
		return nil, err
	}
	scaledReserve, err := safeMul(reserveIn, uint256.NewInt(f.Denominator))
	if err != nil {
		return nil, err
	}
	denominator, err := safeAdd(scaledReserve, effective)
	if err != nil {
		return nil, err
	}
	return safeDiv(numerator, denominator)
}

// Charged is the part of amountIn kept by the pool as fee, rounded down to
// whole base units. Below Denominator/(Denominator-Numerator) base units of
// input it is zero although the pool still keeps a fraction of a unit; the
// exact fee is amountIn*(Denominator-Numerator)/Denominator.
func (f Fee) Charged(amountIn *uint256.Int) (*uint256.Int, error) {
	return safeMulDiv(amountIn, uint256.NewInt(f.Denominator-f.Numerator), uint256.NewInt(f.Denominator))
}

// Params configures pool creation and swaps.
type Params struct {
	Fee                 Fee
	PoolTokenDecimals   uint8
	PoolTokenMinBalance *uint256.Int
}

func DefaultParams() Params {
	return Params{
		Fee:                 DefaultFee(),
		PoolTokenDecimals:   10,
		PoolTokenMinBalance: uint256.NewInt(1),
	}
}

func (p Params) Validate() error {
	if err := p.Fee.Validate(); err != nil {
		return err
	}
	if isZero(p.PoolTokenMinBalance) {
		return ErrInvalidAmount.Wrap("pool token minimum balance must be positive")
	}
	return nil
}
