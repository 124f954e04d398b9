package dex

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestFeeValidate(t *testing.T) {
	cases := []struct {
		fee Fee
		ok  bool
	}{
		{Fee{997, 1000}, true},
		{Fee{1, 1}, true},
		{Fee{0, 1000}, false},
		{Fee{1, 0}, false},
		{Fee{1001, 1000}, false},
	}
	for _, tc := range cases {
		err := tc.fee.Validate()
		if tc.ok && err != nil {
			t.Fatalf("fee %+v: unexpected error %v", tc.fee, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidFee) {
			t.Fatalf("fee %+v: expected invalid fee, got %v", tc.fee, err)
		}
	}
}

func TestAmountOut(t *testing.T) {
	fee := DefaultFee()
	cases := []struct {
		in, reserveIn, reserveOut uint64
		want                      uint64
	}{
		{5, 10, 500, 166},
		{5, 500, 10, 0},
		{1000, 1000, 1000, 499},
		{1, 1, 1_000_000, 499_248},
	}
	for _, tc := range cases {
		got, err := fee.AmountOut(uint256.NewInt(tc.in), uint256.NewInt(tc.reserveIn), uint256.NewInt(tc.reserveOut))
		if err != nil {
			t.Fatalf("amount out: %v", err)
		}
		if got.Uint64() != tc.want {
			t.Fatalf("in=%d reserves=%d/%d: got %d want %d", tc.in, tc.reserveIn, tc.reserveOut, got.Uint64(), tc.want)
		}
	}

	noFee := Fee{Numerator: 1, Denominator: 1}
	got, err := noFee.AmountOut(uint256.NewInt(10), uint256.NewInt(10), uint256.NewInt(10))
	if err != nil {
		t.Fatalf("amount out: %v", err)
	}
	if got.Uint64() != 5 {
		t.Fatalf("fee-free swap: got %d want 5", got.Uint64())
	}
}

func TestAmountOutOverflow(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	_, err := DefaultFee().AmountOut(max, uint256.NewInt(1), uint256.NewInt(1))
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestCharged(t *testing.T) {
	got, err := DefaultFee().Charged(uint256.NewInt(10_000))
	if err != nil {
		t.Fatalf("charged: %v", err)
	}
	if got.Uint64() != 30 {
		t.Fatalf("got %d want 30", got.Uint64())
	}

	// Whole units only: 5*3/1000 and 333*3/1000 are both under one unit.
	for in, want := range map[uint64]uint64{5: 0, 333: 0, 334: 1} {
		got, err := DefaultFee().Charged(uint256.NewInt(in))
		if err != nil {
			t.Fatalf("charged: %v", err)
		}
		if got.Uint64() != want {
			t.Fatalf("charged(%d) = %d, want %d", in, got.Uint64(), want)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params: %v", err)
	}
	params := DefaultParams()
	params.PoolTokenMinBalance = new(uint256.Int)
	if err := params.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}
