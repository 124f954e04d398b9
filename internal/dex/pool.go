package dex

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"dexEngine/internal/model"
)

var (
	moduleAccountSeed = []byte("dex/module")
	poolAccountSeed   = []byte("dex/pool")
)

// ModuleAccount is the administrator of every pool token.
func ModuleAccount() common.Address {
	return common.BytesToAddress(crypto.Keccak256(moduleAccountSeed))
}

// ReserveAccount derives the account custodying the reserves of the pool
// whose share token is poolToken.
func ReserveAccount(poolToken model.AssetID) common.Address {
	var id [4]byte
	binary.BigEndian.PutUint32(id[:], uint32(poolToken))
	return common.BytesToAddress(crypto.Keccak256(poolAccountSeed, id[:]))
}

// LiquidityPool is one trading venue for an asset pair. Balances live in the
// ledger: reserves are the reserve account's holdings of the two assets and
// the supply is the total issuance of the pool token.
type LiquidityPool struct {
	Pair      AssetPair
	PoolToken model.AssetID
	Account   common.Address
}

// CreatePool registers a new pool token with the ledger and returns the pool
// that uses it.
func CreatePool(ledger Ledger, pair AssetPair, id model.AssetID, params Params) (LiquidityPool, error) {
	if ledger.AssetExists(id) {
		return LiquidityPool{}, ErrAssetAlreadyExists.Wrapf("pool token %s", id)
	}

	owner := ModuleAccount()
	if err := ledger.CreateAsset(id, owner, params.PoolTokenMinBalance); err != nil {
		return LiquidityPool{}, ledgerError(ErrAssetAlreadyExists, err)
	}

	symbol := ledger.Symbol(pair.Asset0) + ledger.Symbol(pair.Asset1)
	if err := ledger.SetMetadata(id, symbol, symbol, params.PoolTokenDecimals); err != nil {
		return LiquidityPool{}, ledgerError(ErrInvalidPoolState, err)
	}

	return LiquidityPool{
		Pair:      pair,
		PoolToken: id,
		Account:   ReserveAccount(id),
	}, nil
}

// Reserves returns the pool's holdings of Asset0 and Asset1.
func (p LiquidityPool) Reserves(ledger Ledger) (*uint256.Int, *uint256.Int) {
	return ledger.BalanceOf(p.Pair.Asset0, p.Account), ledger.BalanceOf(p.Pair.Asset1, p.Account)
}

// Supply returns the pool-token total issuance.
func (p LiquidityPool) Supply(ledger Ledger) *uint256.Int {
	return ledger.TotalIssuance(p.PoolToken)
}

func (p LiquidityPool) meta() model.PoolMeta {
	return model.PoolMeta{Asset0: p.Pair.Asset0, Asset1: p.Pair.Asset1, PoolToken: p.PoolToken}
}

// AddResult describes an applied deposit.
type AddResult struct {
	Amount0  *uint256.Int
	Amount1  *uint256.Int
	Minted   *uint256.Int
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
	Price    *uint256.Int
}

// AddLiquidity deposits amount0 of Asset0 and a matching amount of Asset1.
//
// An empty pool takes both amounts as given and mints amount0 pool tokens.
// Otherwise amount0 is authoritative: the Asset1 deposit is
// amount0*reserve1/reserve0 and the minted amount is amount0*supply/reserve0,
// both rounded down; amount1 only has to be non-zero.
func (p LiquidityPool) AddLiquidity(ledger Ledger, amount0, amount1 *uint256.Int, provider common.Address) (*AddResult, error) {
	if isZero(amount0) || isZero(amount1) {
		return nil, ErrInvalidAmount.Wrap("deposit amounts must be positive")
	}

	supply := p.Supply(ledger)
	reserve0, reserve1 := p.Reserves(ledger)

	var deposit1, minted *uint256.Int
	if supply.IsZero() {
		if !reserve0.IsZero() || !reserve1.IsZero() {
			return nil, ErrInvalidPoolState.Wrapf("pool %s has reserves %s/%s without supply", p.Pair, reserve0.Dec(), reserve1.Dec())
		}
		deposit1 = amount1.Clone()
		minted = amount0.Clone()
	} else {
		if reserve0.IsZero() || reserve1.IsZero() {
			return nil, ErrInvalidPoolState.Wrapf("pool %s has supply %s with reserves %s/%s", p.Pair, supply.Dec(), reserve0.Dec(), reserve1.Dec())
		}
		var err error
		if deposit1, err = safeMulDiv(amount0, reserve1, reserve0); err != nil {
			return nil, err
		}
		if minted, err = safeMulDiv(amount0, supply, reserve0); err != nil {
			return nil, err
		}
		if deposit1.IsZero() || minted.IsZero() {
			return nil, ErrInvalidAmount.Wrapf("deposit of %s is too small for pool %s", amount0.Dec(), p.Pair)
		}
	}

	if ledger.BalanceOf(p.Pair.Asset0, provider).Lt(amount0) {
		return nil, ErrInsufficientBalance.Wrapf("asset %s: need %s", p.Pair.Asset0, amount0.Dec())
	}
	if ledger.BalanceOf(p.Pair.Asset1, provider).Lt(deposit1) {
		return nil, ErrInsufficientBalance.Wrapf("asset %s: need %s", p.Pair.Asset1, deposit1.Dec())
	}

	newReserve0, err := safeAdd(reserve0, amount0)
	if err != nil {
		return nil, err
	}
	newReserve1, err := safeAdd(reserve1, deposit1)
	if err != nil {
		return nil, err
	}
	if _, err := safeAdd(supply, minted); err != nil {
		return nil, err
	}
	price, err := safeMul(newReserve0, newReserve1)
	if err != nil {
		return nil, err
	}

	if err := ledger.Mint(p.PoolToken, provider, minted); err != nil {
		return nil, ledgerError(ErrInvalidAmount, err)
	}
	if err := ledger.Transfer(p.Pair.Asset0, provider, p.Account, amount0); err != nil {
		return nil, ledgerError(ErrInsufficientBalance, err)
	}
	if err := ledger.Transfer(p.Pair.Asset1, provider, p.Account, deposit1); err != nil {
		return nil, ledgerError(ErrInsufficientBalance, err)
	}

	return &AddResult{
		Amount0:  amount0.Clone(),
		Amount1:  deposit1,
		Minted:   minted,
		Reserve0: newReserve0,
		Reserve1: newReserve1,
		Price:    price,
	}, nil
}

// RemoveResult describes an applied withdrawal.
type RemoveResult struct {
	Amount0  *uint256.Int
	Amount1  *uint256.Int
	Burned   *uint256.Int
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
	Price    *uint256.Int
}

// RemoveLiquidity burns poolTokens and pays out the provider's share of each
// reserve, rounded down so a withdrawal never exceeds its true share.
func (p LiquidityPool) RemoveLiquidity(ledger Ledger, poolTokens *uint256.Int, provider common.Address) (*RemoveResult, error) {
	if isZero(poolTokens) {
		return nil, ErrInvalidAmount.Wrap("pool token amount must be positive")
	}

	supply := p.Supply(ledger)
	if supply.IsZero() {
		return nil, ErrEmptyPool.Wrapf("pool %s", p.Pair)
	}
	if ledger.BalanceOf(p.PoolToken, provider).Lt(poolTokens) {
		return nil, ErrInsufficientBalance.Wrapf("pool token %s: need %s", p.PoolToken, poolTokens.Dec())
	}

	reserve0, reserve1 := p.Reserves(ledger)
	if reserve0.IsZero() || reserve1.IsZero() {
		return nil, ErrInvalidPoolState.Wrapf("pool %s has supply %s with reserves %s/%s", p.Pair, supply.Dec(), reserve0.Dec(), reserve1.Dec())
	}

	amount0, err := safeMulDiv(reserve0, poolTokens, supply)
	if err != nil {
		return nil, err
	}
	amount1, err := safeMulDiv(reserve1, poolTokens, supply)
	if err != nil {
		return nil, err
	}
	newReserve0, err := safeSub(reserve0, amount0)
	if err != nil {
		return nil, err
	}
	newReserve1, err := safeSub(reserve1, amount1)
	if err != nil {
		return nil, err
	}
	price, err := safeMul(newReserve0, newReserve1)
	if err != nil {
		return nil, err
	}

	if err := ledger.Burn(p.PoolToken, provider, poolTokens); err != nil {
		return nil, ledgerError(ErrInsufficientBalance, err)
	}
	if err := ledger.Transfer(p.Pair.Asset0, p.Account, provider, amount0); err != nil {
		return nil, ledgerError(ErrInsufficientBalance, err)
	}
	if err := ledger.Transfer(p.Pair.Asset1, p.Account, provider, amount1); err != nil {
		return nil, ledgerError(ErrInsufficientBalance, err)
	}

	return &RemoveResult{
		Amount0:  amount0,
		Amount1:  amount1,
		Burned:   poolTokens.Clone(),
		Reserve0: newReserve0,
		Reserve1: newReserve1,
		Price:    price,
	}, nil
}

// SwapResult describes an applied swap.
type SwapResult struct {
	AssetOut  model.AssetID
	AmountOut *uint256.Int
	Fee       *uint256.Int
	Reserve0  *uint256.Int
	Reserve1  *uint256.Int
	Price     *uint256.Int
}

// Swap sells amountIn of assetIn to the pool for the other asset.
func (p LiquidityPool) Swap(ledger Ledger, amountIn *uint256.Int, assetIn model.AssetID, trader common.Address, fee Fee) (*SwapResult, error) {
	if isZero(amountIn) {
		return nil, ErrInvalidAmount.Wrap("swap amount must be positive")
	}
	if !p.Pair.Contains(assetIn) {
		return nil, ErrInvalidAsset.Wrapf("asset %s is not part of pool %s", assetIn, p.Pair)
	}
	if p.Supply(ledger).IsZero() {
		return nil, ErrEmptyPool.Wrapf("pool %s", p.Pair)
	}

	assetOut := p.Pair.Other(assetIn)
	reserveIn := ledger.BalanceOf(assetIn, p.Account)
	reserveOut := ledger.BalanceOf(assetOut, p.Account)
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInvalidPoolState.Wrapf("pool %s has reserves %s/%s", p.Pair, reserveIn.Dec(), reserveOut.Dec())
	}
	if ledger.BalanceOf(assetIn, trader).Lt(amountIn) {
		return nil, ErrInsufficientBalance.Wrapf("asset %s: need %s", assetIn, amountIn.Dec())
	}

	amountOut, err := fee.AmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		return nil, ErrInsufficientOutputAmount.Wrapf("%s of asset %s buys nothing", amountIn.Dec(), assetIn)
	}
	if !amountOut.Lt(reserveOut) {
		return nil, ErrInvalidPoolState.Wrapf("output %s drains reserve %s", amountOut.Dec(), reserveOut.Dec())
	}
	charged, err := fee.Charged(amountIn)
	if err != nil {
		return nil, err
	}

	newReserveIn, err := safeAdd(reserveIn, amountIn)
	if err != nil {
		return nil, err
	}
	newReserveOut, err := safeSub(reserveOut, amountOut)
	if err != nil {
		return nil, err
	}
	price, err := safeMul(newReserveIn, newReserveOut)
	if err != nil {
		return nil, err
	}

	if err := ledger.Transfer(assetIn, trader, p.Account, amountIn); err != nil {
		return nil, ledgerError(ErrInsufficientBalance, err)
	}
	if err := ledger.Transfer(assetOut, p.Account, trader, amountOut); err != nil {
		return nil, ledgerError(ErrInsufficientBalance, err)
	}

	reserve0, reserve1 := newReserveIn, newReserveOut
	if assetIn != p.Pair.Asset0 {
		reserve0, reserve1 = newReserveOut, newReserveIn
	}
	return &SwapResult{
		AssetOut:  assetOut,
		AmountOut: amountOut,
		Fee:       charged,
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		Price:     price,
	}, nil
}

// Quote values amount of asset in the other asset at current reserves.
func (p LiquidityPool) Quote(ledger Ledger, amount *uint256.Int, asset model.AssetID) (*uint256.Int, error) {
	if isZero(amount) {
		return nil, ErrInvalidAmount.Wrap("quote amount must be positive")
	}
	if !p.Pair.Contains(asset) {
		return nil, ErrInvalidAsset.Wrapf("asset %s is not part of pool %s", asset, p.Pair)
	}
	reserveAsset := ledger.BalanceOf(asset, p.Account)
	reserveOther := ledger.BalanceOf(p.Pair.Other(asset), p.Account)
	if reserveAsset.IsZero() {
		return nil, ErrEmptyPool.Wrapf("pool %s", p.Pair)
	}
	return safeMulDiv(amount, reserveOther, reserveAsset)
}
