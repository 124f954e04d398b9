package dex

import (
	"github.com/holiman/uint256"
)

// Checked arithmetic over uint256. Every helper returns a fresh value and
// never aliases its inputs.

func safeAdd(a, b *uint256.Int) (*uint256.Int, error) {
	result, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow.Wrapf("%s + %s", a.Dec(), b.Dec())
	}
	return result, nil
}

func safeSub(a, b *uint256.Int) (*uint256.Int, error) {
	result, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrOverflow.Wrapf("underflow: %s - %s", a.Dec(), b.Dec())
	}
	return result, nil
}

func safeMul(a, b *uint256.Int) (*uint256.Int, error) {
	result, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow.Wrapf("%s * %s", a.Dec(), b.Dec())
	}
	return result, nil
}

func safeDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero.Wrapf("%s / 0", a.Dec())
	}
	return new(uint256.Int).Div(a, b), nil
}

// safeMulDiv computes a * b / c rounding down. The intermediate product must
// fit in 256 bits.
func safeMulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	if c.IsZero() {
		return nil, ErrDivisionByZero.Wrapf("%s * %s / 0", a.Dec(), b.Dec())
	}
	product, err := safeMul(a, b)
	if err != nil {
		return nil, err
	}
	return product.Div(product, c), nil
}

func isZero(v *uint256.Int) bool {
	return v == nil || v.IsZero()
}
