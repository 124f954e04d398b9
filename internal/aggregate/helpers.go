package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

// formatTokenAmount renders base units as a decimal with the asset's precision.
func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(value, denom).FloatString(int(decimals))
}

// formatRatAmount renders a fractional base-unit amount like formatTokenAmount,
// rounded to the asset's precision.
func formatRatAmount(value *big.Rat, decimals uint8) string {
	if value == nil {
		return "0"
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).Quo(value, new(big.Rat).SetInt(denom)).FloatString(int(decimals))
}

// windowFees returns the fee kept on each side. With a swap fee share the
// fee is recomputed from the summed input, otherwise the per-swap fees in the
// events, each rounded down, are summed.
func windowFees(acc *Accumulator, share *big.Rat) (*big.Rat, *big.Rat) {
	if share == nil {
		return new(big.Rat).SetInt(acc.Fee0), new(big.Rat).SetInt(acc.Fee1)
	}
	fee0 := new(big.Rat).Mul(new(big.Rat).SetInt(acc.In0), share)
	fee1 := new(big.Rat).Mul(new(big.Rat).SetInt(acc.In1), share)
	return fee0, fee1
}

func computeFeeRates(fee0, fee1 *big.Rat, reserve0, reserve1 *big.Int) (*big.Rat, *big.Rat) {
	return feeRate(fee0, reserve0), feeRate(fee1, reserve1)
}

func feeRate(fee *big.Rat, reserve *big.Int) *big.Rat {
	if fee == nil || reserve == nil || reserve.Sign() == 0 {
		return nil
	}
	return new(big.Rat).Quo(fee, new(big.Rat).SetInt(reserve))
}

// computeAPR annualizes the window fee yield. Both sides of a constant-product
// pool hold equal value, so the pool yield is the mean of the two side rates.
func computeAPR(feeRate0, feeRate1 *big.Rat, windowSeconds uint64) *big.Rat {
	if windowSeconds == 0 || feeRate0 == nil || feeRate1 == nil {
		return nil
	}
	yield := new(big.Rat).Add(feeRate0, feeRate1)
	yield.Quo(yield, big.NewRat(2, 1))

	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	apr := yield.Mul(yield, yearSeconds)
	return apr.Quo(apr, big.NewRat(int64(windowSeconds), 1))
}

func ratString(r *big.Rat) *string {
	if r == nil {
		return nil
	}
	val := r.FloatString(ratioScale)
	return &val
}
