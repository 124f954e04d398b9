package dex

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"dexEngine/internal/ledger"
	"dexEngine/internal/model"
)

const (
	assetA model.AssetID = 1
	assetB model.AssetID = 2
	assetC model.AssetID = 3

	startBalance = 1000
	farDeadline  = 1_000_000
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000ad111")
	provider = common.HexToAddress("0x0000000000000000000000000000000000000001")
	trader   = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

type recordingSink struct {
	mu      sync.Mutex
	records []model.EventRecord
	fail    bool
}

func (s *recordingSink) PutEventBatch(records []model.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.EventName)
	}
	return out
}

type fixture struct {
	ledger   *ledger.Memory
	registry *PoolRegistry
	engine   *Engine
	sink     *recordingSink
	now      uint64
}

func newFixture(t require.TestingT) *fixture {
	f := &fixture{
		ledger:   ledger.NewMemory(),
		registry: NewPoolRegistry(memorydb.New()),
		sink:     &recordingSink{},
		now:      100,
	}
	symbols := map[model.AssetID]string{assetA: "AAA", assetB: "BBB", assetC: "CCC"}
	for _, id := range []model.AssetID{assetA, assetB, assetC} {
		require.NoError(t, f.ledger.CreateAsset(id, admin, uint256.NewInt(1)))
		require.NoError(t, f.ledger.SetMetadata(id, symbols[id], symbols[id], 12))
		require.NoError(t, f.ledger.Mint(id, provider, uint256.NewInt(startBalance)))
		require.NoError(t, f.ledger.Mint(id, trader, uint256.NewInt(startBalance)))
	}
	f.ledger.Commit()

	engine, err := NewEngine(DefaultParams(), Deps{
		Ledger:   f.ledger,
		Registry: f.registry,
		Clock:    ClockFunc(func() uint64 { return f.now }),
		Sink:     f.sink,
	}, nil)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) balance(asset model.AssetID, account common.Address) uint64 {
	return f.ledger.BalanceOf(asset, account).Uint64()
}

func (f *fixture) add(t require.TestingT, amountA uint64, a model.AssetID, amountB uint64, b model.AssetID) {
	err := f.engine.AddLiquidity(Origin{Account: provider}, uint256.NewInt(amountA), a, uint256.NewInt(amountB), b, farDeadline)
	require.NoError(t, err)
}

func (f *fixture) pool(t require.TestingT, a, b model.AssetID) LiquidityPool {
	pair, err := Canonicalize(a, b)
	require.NoError(t, err)
	pool, ok, err := f.registry.Get(pair)
	require.NoError(t, err)
	require.True(t, ok)
	return pool
}

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
