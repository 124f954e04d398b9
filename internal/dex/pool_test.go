package dex

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"dexEngine/internal/model"
)

func newTestPool(t *testing.T, f *fixture) LiquidityPool {
	t.Helper()
	pair, err := Canonicalize(assetA, assetB)
	require.NoError(t, err)
	pool, err := CreatePool(f.ledger, pair, 42, DefaultParams())
	require.NoError(t, err)
	return pool
}

func TestCreatePool(t *testing.T) {
	f := newFixture(t)
	pool := newTestPool(t, f)

	require.Equal(t, model.AssetID(42), pool.PoolToken)
	require.Equal(t, ReserveAccount(42), pool.Account)
	require.NotEqual(t, ReserveAccount(41), pool.Account)
	meta, ok := f.ledger.Metadata(42)
	require.True(t, ok)
	require.Equal(t, model.AssetMeta{ID: 42, Name: "AAABBB", Symbol: "AAABBB", Decimals: 10}, meta)
	require.True(t, pool.Supply(f.ledger).IsZero())

	_, err := CreatePool(f.ledger, pool.Pair, 42, DefaultParams())
	require.ErrorIs(t, err, ErrAssetAlreadyExists)
}

func TestPoolAddLiquidityBootstrapRequiresEmptyReserves(t *testing.T) {
	f := newFixture(t)
	pool := newTestPool(t, f)

	// Reserves without supply can only come from a direct transfer.
	require.NoError(t, f.ledger.Transfer(assetA, trader, pool.Account, u(5)))

	_, err := pool.AddLiquidity(f.ledger, u(10), u(10), provider)
	require.ErrorIs(t, err, ErrInvalidPoolState)
}

func TestPoolAddLiquidityTooSmall(t *testing.T) {
	f := newFixture(t)
	pool := newTestPool(t, f)

	_, err := pool.AddLiquidity(f.ledger, u(100), u(1), provider)
	require.NoError(t, err)

	// 1*1/100 rounds to zero on the second side.
	_, err = pool.AddLiquidity(f.ledger, u(1), u(1), provider)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPoolSwapInvalidAsset(t *testing.T) {
	f := newFixture(t)
	pool := newTestPool(t, f)
	_, err := pool.AddLiquidity(f.ledger, u(100), u(100), provider)
	require.NoError(t, err)

	_, err = pool.Swap(f.ledger, u(1), assetC, trader, DefaultFee())
	require.ErrorIs(t, err, ErrInvalidAsset)

	_, err = pool.Quote(f.ledger, u(1), assetC)
	require.ErrorIs(t, err, ErrInvalidAsset)
}

func TestPoolSwapReportsFee(t *testing.T) {
	f := newFixture(t)
	pool := newTestPool(t, f)
	_, err := pool.AddLiquidity(f.ledger, u(1000), u(1000), provider)
	require.NoError(t, err)

	res, err := pool.Swap(f.ledger, u(1000), assetB, trader, DefaultFee())
	require.NoError(t, err)
	require.Equal(t, assetA, res.AssetOut)
	require.Equal(t, uint64(499), res.AmountOut.Uint64())
	require.Equal(t, uint64(3), res.Fee.Uint64())
	require.Equal(t, uint64(501), res.Reserve0.Uint64())
	require.Equal(t, uint64(2000), res.Reserve1.Uint64())
}

func TestSwapNeverDecreasesProduct(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		reserveA := rapid.Uint64Range(1, startBalance).Draw(t, "reserveA")
		reserveB := rapid.Uint64Range(1, startBalance).Draw(t, "reserveB")
		f.add(t, reserveA, assetA, reserveB, assetB)
		pool := f.pool(t, assetA, assetB)
		supply := pool.Supply(f.ledger)

		steps := rapid.IntRange(1, 10).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			amount := rapid.Uint64Range(1, startBalance).Draw(t, "amount")
			in, out := assetA, assetB
			if rapid.Bool().Draw(t, "reverse") {
				in, out = out, in
			}

			r0, r1 := pool.Reserves(f.ledger)
			before := new(uint256.Int).Mul(r0, r1)

			_, err := f.engine.Swap(Origin{Account: trader}, u(amount), in, out)
			if err != nil {
				if !errors.Is(err, ErrInsufficientOutputAmount) && !errors.Is(err, ErrInsufficientBalance) && !errors.Is(err, ErrInvalidPoolState) {
					t.Fatalf("unexpected swap error: %v", err)
				}
				continue
			}

			r0, r1 = pool.Reserves(f.ledger)
			after := new(uint256.Int).Mul(r0, r1)
			if after.Lt(before) {
				t.Fatalf("product decreased: %s -> %s", before.Dec(), after.Dec())
			}
			if r0.IsZero() || r1.IsZero() {
				t.Fatalf("swap drained a reserve")
			}
			if !pool.Supply(f.ledger).Eq(supply) {
				t.Fatalf("swap changed pool token supply")
			}
		}
	})
}

func TestLiquidityConservesValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		first := rapid.Uint64Range(1, startBalance/2).Draw(t, "first")
		second := rapid.Uint64Range(1, startBalance/2).Draw(t, "second")
		f.add(t, first, assetA, second, assetB)
		pool := f.pool(t, assetA, assetB)
		accounts := func(asset model.AssetID) uint64 {
			return f.balance(asset, provider) + f.balance(asset, trader) + f.balance(asset, pool.Account)
		}

		for i, n := 0, rapid.IntRange(1, 8).Draw(t, "steps"); i < n; i++ {
			held := f.balance(pool.PoolToken, provider)
			if held > 0 && rapid.Bool().Draw(t, "remove") {
				burn := rapid.Uint64Range(1, held).Draw(t, "burn")
				require.NoError(t, f.engine.RemoveLiquidity(Origin{Account: provider}, u(burn), assetA, assetB, farDeadline))
			} else {
				amount := rapid.Uint64Range(1, startBalance/4).Draw(t, "deposit")
				err := f.engine.AddLiquidity(Origin{Account: provider}, u(amount), assetA, u(1), assetB, farDeadline)
				if err != nil && !errors.Is(err, ErrInsufficientBalance) && !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("unexpected add error: %v", err)
				}
			}

			if accounts(assetA) != 2*startBalance || accounts(assetB) != 2*startBalance {
				t.Fatalf("value created or destroyed")
			}
			supply := pool.Supply(f.ledger)
			r0, r1 := pool.Reserves(f.ledger)
			if supply.IsZero() != (r0.IsZero() && r1.IsZero()) {
				t.Fatalf("supply %s inconsistent with reserves %s/%s", supply.Dec(), r0.Dec(), r1.Dec())
			}
		}
	})
}
