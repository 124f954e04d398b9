package aggregate

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatTokenAmount(t *testing.T) {
	cases := []struct {
		value    *big.Int
		decimals uint8
		want     string
	}{
		{nil, 6, "0"},
		{big.NewInt(12345), 0, "12345"},
		{big.NewInt(12345), 2, "123.45"},
		{big.NewInt(5), 3, "0.005"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, formatTokenAmount(tc.value, tc.decimals))
	}
}

func TestComputeAPRNeedsBothRates(t *testing.T) {
	rate0, rate1 := computeFeeRates(big.NewRat(1, 1), big.NewRat(1, 1), big.NewInt(100), nil)
	require.NotNil(t, rate0)
	require.Nil(t, rate1)
	require.Nil(t, computeAPR(rate0, rate1, 3600))
	require.Nil(t, computeAPR(rate0, rate0, 0))

	day := computeAPR(big.NewRat(1, 100), big.NewRat(3, 100), 86400)
	require.Equal(t, "7.30", day.FloatString(2))
}

func TestFormatRatAmount(t *testing.T) {
	require.Equal(t, "0", formatRatAmount(nil, 2))
	require.Equal(t, "0.1", formatRatAmount(big.NewRat(1, 1), 1))
	require.Equal(t, "0.015", formatRatAmount(big.NewRat(15, 1), 3))
	require.Equal(t, "0", formatRatAmount(big.NewRat(3, 200), 0))
}
