package dex

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"dexEngine/internal/metrics"
	"dexEngine/internal/model"
)

// Deps are the collaborators of an Engine. Ledger and Registry are required;
// the rest fall back to a system clock, an authenticator that trusts the
// origin account, no event sink and no metrics.
type Deps struct {
	Ledger   Ledger
	Registry *PoolRegistry
	Clock    Clock
	Auth     Authenticator
	Sink     EventSink
	Metrics  *metrics.Metrics
}

// Engine applies liquidity and swap operations one at a time. Each operation
// either fully succeeds or leaves ledger and registry unchanged.
type Engine struct {
	mu sync.Mutex

	params   Params
	ledger   Ledger
	registry *PoolRegistry
	clock    Clock
	auth     Authenticator
	sink     EventSink
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewEngine(params Params, deps Deps, logger *zap.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if deps.Ledger == nil || deps.Registry == nil {
		return nil, errors.New("engine needs a ledger and a registry")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.Auth == nil {
		deps.Auth = originAccount{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		params:   params,
		ledger:   deps.Ledger,
		registry: deps.Registry,
		clock:    deps.Clock,
		auth:     deps.Auth,
		sink:     deps.Sink,
		metrics:  deps.Metrics,
		logger:   logger,
	}, nil
}

// originAccount accepts the origin account as is, rejecting the zero address.
type originAccount struct{}

func (originAccount) Authenticate(origin Origin) (common.Address, error) {
	if origin.Account == (common.Address{}) {
		return common.Address{}, ErrBadOrigin.Wrap("unsigned origin")
	}
	return origin.Account, nil
}

func (e *Engine) Params() Params {
	return e.params
}

// Nonce returns the last nonce account used, or zero.
func (e *Engine) Nonce(account common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Nonce(account)
}

// LastSeq returns the sequence number of the last applied operation.
func (e *Engine) LastSeq() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.LastSeq()
}

type pendingEvent struct {
	meta  model.PoolMeta
	event model.Event
}

// operation collects the staged effects of a single engine call.
type operation struct {
	txn    *RegistryTxn
	events []pendingEvent
	after  []func()
}

func (o *operation) emit(pool LiquidityPool, event model.Event) {
	o.events = append(o.events, pendingEvent{meta: pool.meta(), event: event})
}

// onCommit registers fn to run once the operation is committed.
func (o *operation) onCommit(fn func()) {
	o.after = append(o.after, fn)
}

// apply runs fn under the engine lock inside a ledger snapshot and a registry
// transaction. Events reach the sink only after both are committed.
func (e *Engine) apply(name string, fn func(op *operation) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	revid := e.ledger.Snapshot()
	op := &operation{txn: e.registry.Begin()}

	records, err := e.run(op, fn)
	e.metrics.ObserveOp(name, err)
	if err != nil {
		e.ledger.RevertToSnapshot(revid)
		e.logger.Debug("operation rejected", zap.String("op", name), zap.Error(err))
		return err
	}

	if c, ok := e.ledger.(committer); ok {
		c.Commit()
	}
	for _, hook := range op.after {
		hook()
	}
	e.publish(records)
	return nil
}

func (e *Engine) run(op *operation, fn func(op *operation) error) ([]model.EventRecord, error) {
	if err := fn(op); err != nil {
		return nil, err
	}
	seq, err := op.txn.NextSeq()
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	records := make([]model.EventRecord, 0, len(op.events))
	for i, ev := range op.events {
		records = append(records, model.EventRecord{
			Seq:       seq,
			Index:     uint32(i),
			Timestamp: now,
			EventName: ev.event.EventName(),
			PoolMeta:  ev.meta,
			Decoded:   ev.event,
		})
	}
	if err := op.txn.Commit(); err != nil {
		return nil, err
	}
	return records, nil
}

func (e *Engine) publish(records []model.EventRecord) {
	if e.sink == nil || len(records) == 0 {
		return
	}
	if err := e.sink.PutEventBatch(records); err != nil {
		e.logger.Warn("publish events failed",
			zap.Uint64("seq", records[0].Seq),
			zap.Int("events", len(records)),
			zap.Error(err),
		)
	}
}

// authenticate resolves origin and, when it carries a nonce, consumes the
// nonce in op so the same request cannot be applied twice.
func (e *Engine) authenticate(op *operation, origin Origin) (common.Address, error) {
	who, err := e.auth.Authenticate(origin)
	if err != nil {
		return common.Address{}, err
	}
	if who == (common.Address{}) {
		return common.Address{}, ErrBadOrigin.Wrap("empty identity")
	}
	if origin.Nonce != 0 {
		if err := op.txn.UseNonce(who, origin.Nonce); err != nil {
			return common.Address{}, err
		}
	}
	return who, nil
}

func (e *Engine) checkDeadline(deadline uint64) error {
	now := e.clock.Now()
	if deadline <= now {
		return ErrDeadlinePassed.Wrapf("deadline %d, now %d", deadline, now)
	}
	return nil
}

// AddLiquidity deposits a pair of assets, creating the pool on the first
// deposit for the pair. Amounts may be given in either asset order.
func (e *Engine) AddLiquidity(origin Origin, amount0 *uint256.Int, asset0 model.AssetID, amount1 *uint256.Int, asset1 model.AssetID, deadline uint64) error {
	return e.apply(model.OpAddLiquidity, func(op *operation) error {
		provider, err := e.authenticate(op, origin)
		if err != nil {
			return err
		}
		if asset0 == asset1 {
			return ErrIdenticalAssets.Wrapf("asset %s", asset0)
		}
		if isZero(amount0) || isZero(amount1) {
			return ErrInvalidAmount.Wrap("deposit amounts must be positive")
		}
		for _, asset := range []model.AssetID{asset0, asset1} {
			if !e.ledger.AssetExists(asset) {
				return ErrInvalidAsset.Wrapf("asset %s does not exist", asset)
			}
		}
		if e.ledger.BalanceOf(asset0, provider).Lt(amount0) {
			return ErrInsufficientBalance.Wrapf("asset %s: need %s", asset0, amount0.Dec())
		}
		if e.ledger.BalanceOf(asset1, provider).Lt(amount1) {
			return ErrInsufficientBalance.Wrapf("asset %s: need %s", asset1, amount1.Dec())
		}
		if err := e.checkDeadline(deadline); err != nil {
			return err
		}
		return e.addLiquidity(op, provider, amount0, asset0, amount1, asset1)
	})
}

func (e *Engine) addLiquidity(op *operation, provider common.Address, amountA *uint256.Int, assetA model.AssetID, amountB *uint256.Int, assetB model.AssetID) error {
	first, second := OrderValues(amountA, assetA, amountB, assetB)
	pair, err := Canonicalize(first.Asset, second.Asset)
	if err != nil {
		return err
	}

	pool, _, err := op.txn.GetOrCreate(pair, func(pair AssetPair, id model.AssetID) (LiquidityPool, error) {
		pool, err := CreatePool(e.ledger, pair, id, e.params)
		if err != nil {
			return LiquidityPool{}, err
		}
		op.emit(pool, model.LiquidityPoolCreatedData{
			Asset0:    pair.Asset0,
			Asset1:    pair.Asset1,
			PoolToken: pool.PoolToken,
			Account:   pool.Account.Hex(),
		})
		op.onCommit(func() {
			e.metrics.PoolCreated()
			e.logger.Info("liquidity pool created",
				zap.Stringer("pair", pair),
				zap.Stringer("pool_token", pool.PoolToken),
				zap.String("account", pool.Account.Hex()),
			)
		})
		return pool, nil
	})
	if err != nil {
		return err
	}

	res, err := pool.AddLiquidity(e.ledger, first.Amount, second.Amount, provider)
	if err != nil {
		return err
	}
	if err := op.txn.SetPrice(pair, res.Price); err != nil {
		return err
	}

	op.emit(pool, model.LiquidityAddedData{
		Provider: provider.Hex(),
		Amount0:  res.Amount0.Dec(),
		Asset0:   pair.Asset0,
		Amount1:  res.Amount1.Dec(),
		Asset1:   pair.Asset1,
		Minted:   res.Minted.Dec(),
		Reserve0: res.Reserve0.Dec(),
		Reserve1: res.Reserve1.Dec(),
	})
	op.emit(pool, model.PriceChangedData{Asset0: pair.Asset0, Asset1: pair.Asset1, Price: res.Price.Dec()})
	op.onCommit(func() {
		label := pool.PoolToken.String()
		e.metrics.Deposit(label, pair.Asset0.String(), pair.Asset1.String(), res.Amount0, res.Amount1)
		e.metrics.PoolState(label, pair.Asset0.String(), pair.Asset1.String(), res.Reserve0, res.Reserve1, pool.Supply(e.ledger))
	})
	return nil
}

// RemoveLiquidity burns poolTokens of the pair's pool token and returns the
// provider's share of both reserves. It never creates a pool.
func (e *Engine) RemoveLiquidity(origin Origin, poolTokens *uint256.Int, asset0, asset1 model.AssetID, deadline uint64) error {
	return e.apply(model.OpRemoveLiquidity, func(op *operation) error {
		provider, err := e.authenticate(op, origin)
		if err != nil {
			return err
		}
		pair, err := Canonicalize(asset0, asset1)
		if err != nil {
			return err
		}
		if isZero(poolTokens) {
			return ErrInvalidAmount.Wrap("pool token amount must be positive")
		}
		if err := e.checkDeadline(deadline); err != nil {
			return err
		}
		pool, err := e.lookup(op.txn, pair)
		if err != nil {
			return err
		}

		res, err := pool.RemoveLiquidity(e.ledger, poolTokens, provider)
		if err != nil {
			return err
		}
		if err := op.txn.SetPrice(pair, res.Price); err != nil {
			return err
		}

		op.emit(pool, model.LiquidityRemovedData{
			Provider: provider.Hex(),
			Amount0:  res.Amount0.Dec(),
			Asset0:   pair.Asset0,
			Amount1:  res.Amount1.Dec(),
			Asset1:   pair.Asset1,
			Burned:   res.Burned.Dec(),
			Reserve0: res.Reserve0.Dec(),
			Reserve1: res.Reserve1.Dec(),
		})
		op.emit(pool, model.PriceChangedData{Asset0: pair.Asset0, Asset1: pair.Asset1, Price: res.Price.Dec()})
		op.onCommit(func() {
			label := pool.PoolToken.String()
			e.metrics.Withdraw(label, pair.Asset0.String(), pair.Asset1.String(), res.Amount0, res.Amount1)
			e.metrics.PoolState(label, pair.Asset0.String(), pair.Asset1.String(), res.Reserve0, res.Reserve1, pool.Supply(e.ledger))
		})
		return nil
	})
}

// Swap sells amount of assetIn for assetOut and returns the amount bought.
func (e *Engine) Swap(origin Origin, amount *uint256.Int, assetIn, assetOut model.AssetID) (*uint256.Int, error) {
	var bought *uint256.Int
	err := e.apply(model.OpSwap, func(op *operation) error {
		trader, err := e.authenticate(op, origin)
		if err != nil {
			return err
		}
		pair, err := Canonicalize(assetIn, assetOut)
		if err != nil {
			return err
		}
		if isZero(amount) {
			return ErrInvalidAmount.Wrap("swap amount must be positive")
		}
		if e.ledger.BalanceOf(assetIn, trader).Lt(amount) {
			return ErrInsufficientBalance.Wrapf("asset %s: need %s", assetIn, amount.Dec())
		}
		pool, err := e.lookup(op.txn, pair)
		if err != nil {
			return err
		}

		res, err := pool.Swap(e.ledger, amount, assetIn, trader, e.params.Fee)
		if err != nil {
			return err
		}
		if err := op.txn.SetPrice(pair, res.Price); err != nil {
			return err
		}

		op.emit(pool, model.SwappedData{
			Trader:    trader.Hex(),
			AssetIn:   assetIn,
			AmountIn:  amount.Dec(),
			AssetOut:  res.AssetOut,
			AmountOut: res.AmountOut.Dec(),
			Fee:       res.Fee.Dec(),
			Reserve0:  res.Reserve0.Dec(),
			Reserve1:  res.Reserve1.Dec(),
		})
		op.emit(pool, model.PriceChangedData{Asset0: pair.Asset0, Asset1: pair.Asset1, Price: res.Price.Dec()})
		op.onCommit(func() {
			label := pool.PoolToken.String()
			e.metrics.Swap(label, assetIn.String(), amount, res.Fee)
			e.metrics.PoolState(label, pair.Asset0.String(), pair.Asset1.String(), res.Reserve0, res.Reserve1, pool.Supply(e.ledger))
		})
		bought = res.AmountOut
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bought, nil
}

// Price values amount of asset in other at the pool's current reserves. It
// reads state only.
func (e *Engine) Price(amount *uint256.Int, asset, other model.AssetID) (*uint256.Int, error) {
	if isZero(amount) {
		return nil, ErrInvalidAmount.Wrap("quote amount must be positive")
	}
	pair, err := Canonicalize(asset, other)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.lookup(nil, pair)
	if err != nil {
		return nil, err
	}
	return pool.Quote(e.ledger, amount, asset)
}

// Pool returns the current view of the pool for the pair.
func (e *Engine) Pool(asset0, asset1 model.AssetID) (model.Pool, error) {
	pair, err := Canonicalize(asset0, asset1)
	if err != nil {
		return model.Pool{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.lookup(nil, pair)
	if err != nil {
		return model.Pool{}, err
	}
	return e.view(pool)
}

// Pools returns views of every pool ordered by pair.
func (e *Engine) Pools() ([]model.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pools, err := e.registry.Pools()
	if err != nil {
		return nil, err
	}
	out := make([]model.Pool, 0, len(pools))
	for _, pool := range pools {
		view, err := e.view(pool)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (e *Engine) lookup(txn *RegistryTxn, pair AssetPair) (LiquidityPool, error) {
	var (
		pool LiquidityPool
		ok   bool
		err  error
	)
	if txn != nil {
		pool, ok, err = txn.Get(pair)
	} else {
		pool, ok, err = e.registry.Get(pair)
	}
	if err != nil {
		return LiquidityPool{}, err
	}
	if !ok {
		return LiquidityPool{}, ErrNoPool.Wrapf("pair %s", pair)
	}
	return pool, nil
}

func (e *Engine) view(pool LiquidityPool) (model.Pool, error) {
	reserve0, reserve1 := pool.Reserves(e.ledger)
	price, ok, err := e.registry.Price(pool.Pair)
	if err != nil {
		return model.Pool{}, err
	}
	if !ok {
		price = new(uint256.Int)
	}
	return model.Pool{
		Asset0:    pool.Pair.Asset0,
		Asset1:    pool.Pair.Asset1,
		PoolToken: pool.PoolToken,
		Account:   pool.Account.Hex(),
		Reserve0:  reserve0.Dec(),
		Reserve1:  reserve1.Dec(),
		Supply:    pool.Supply(e.ledger).Dec(),
		Price:     price.Dec(),
	}, nil
}
