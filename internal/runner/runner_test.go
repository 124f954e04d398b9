package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"dexEngine/internal/auth"
	"dexEngine/internal/dex"
	"dexEngine/internal/ledger"
	"dexEngine/internal/model"
	"dexEngine/internal/storage"
)

var (
	provider = common.HexToAddress("0x0000000000000000000000000000000000000001")
	trader   = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

type testEnv struct {
	ledger *ledger.Memory
	engine *dex.Engine
	sink   *storage.MemoryStorage
}

func newTestEnv(t *testing.T, db *memorydb.Database) *testEnv {
	return newTestEnvWithAuth(t, db, auth.Trusted{})
}

func newTestEnvWithAuth(t *testing.T, db *memorydb.Database, authenticator dex.Authenticator, holders ...common.Address) *testEnv {
	t.Helper()
	l := ledger.NewMemory()
	for _, id := range []model.AssetID{1, 2} {
		require.NoError(t, l.CreateAsset(id, provider, uint256.NewInt(1)))
		for _, holder := range append([]common.Address{provider, trader}, holders...) {
			require.NoError(t, l.Mint(id, holder, uint256.NewInt(1000)))
		}
	}
	l.Commit()

	sink := storage.NewMemoryStorage()
	engine, err := dex.NewEngine(dex.DefaultParams(), dex.Deps{
		Ledger:   l,
		Registry: dex.NewPoolRegistry(db),
		Clock:    dex.ClockFunc(func() uint64 { return 100 }),
		Auth:     authenticator,
		Sink:     sink,
	}, nil)
	require.NoError(t, err)
	return &testEnv{ledger: l, engine: engine, sink: sink}
}

func writeRequests(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requests.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

var testRequests = []string{
	`{"op":"add_liquidity","account":"` + provider.Hex() + `","amount_0":"10","asset_0":1,"amount_1":"500","asset_1":2,"deadline":1000}`,
	`{"op":"swap","account":"` + trader.Hex() + `","amount_0":"5","asset_0":1,"asset_1":2}`,
	`not json`,
	``,
	`{"op":"swap","account":"` + trader.Hex() + `","amount_0":"5","asset_0":1,"asset_1":1}`,
	`{"op":"remove_liquidity","account":"` + provider.Hex() + `","amount_0":"10","asset_0":2,"asset_1":1,"deadline":1000}`,
}

func TestRunnerAppliesRequests(t *testing.T) {
	env := newTestEnv(t, memorydb.New())
	dir := t.TempDir()
	errs := storage.NewMemoryStorage()

	cfg := RunConfig{
		InputPath:         writeRequests(t, testRequests...),
		BatchSize:         2,
		CheckpointPath:    filepath.Join(dir, "checkpoint.json"),
		CheckpointEnabled: true,
		StatePath:         filepath.Join(dir, "ledger.json"),
	}
	summary, err := NewRunner(cfg, env.engine, errs, env.ledger, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Applied: 3, Rejected: 2}, summary)

	// The trader keeps the 166 bought; the provider gets the rest back.
	require.Equal(t, uint64(995), env.ledger.BalanceOf(1, trader).Uint64())
	require.Equal(t, uint64(1166), env.ledger.BalanceOf(2, trader).Uint64())
	require.Equal(t, uint64(1005), env.ledger.BalanceOf(1, provider).Uint64())
	require.Equal(t, uint64(834), env.ledger.BalanceOf(2, provider).Uint64())

	rejected := errs.Errors()
	require.Len(t, rejected, 2)
	require.Equal(t, uint64(3), rejected[0].Request)
	require.Equal(t, uint64(4), rejected[1].Request)
	require.Contains(t, rejected[1].Error, "identical assets")

	cp, ok, err := NewCheckpointStore(cfg.CheckpointPath, true).Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(5), cp.LastAppliedRequest)
	require.Equal(t, uint64(3), cp.EngineSeq)

	saved, err := ledger.LoadFile(cfg.StatePath)
	require.NoError(t, err)
	require.Equal(t, env.ledger.Export(), saved.Export())

	// A second run resumes after the checkpoint and applies nothing.
	events := len(env.sink.Events())
	summary, err = NewRunner(cfg, env.engine, errs, env.ledger, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{}, summary)
	require.Len(t, env.sink.Events(), events)
}

func TestRunnerResumesMidFile(t *testing.T) {
	db := memorydb.New()
	env := newTestEnv(t, db)
	dir := t.TempDir()
	cfg := RunConfig{
		InputPath:         writeRequests(t, testRequests[:2]...),
		BatchSize:         10,
		CheckpointPath:    filepath.Join(dir, "checkpoint.json"),
		CheckpointEnabled: true,
	}
	_, err := NewRunner(cfg, env.engine, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)

	cfg.InputPath = writeRequests(t, testRequests...)
	summary, err := NewRunner(cfg, env.engine, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Applied: 1, Rejected: 2}, summary)
}

func TestRunnerDetectsDivergedState(t *testing.T) {
	dir := t.TempDir()
	cfg := RunConfig{
		InputPath:         writeRequests(t, testRequests[:2]...),
		BatchSize:         10,
		CheckpointPath:    filepath.Join(dir, "checkpoint.json"),
		CheckpointEnabled: true,
	}
	_, err := NewRunner(cfg, newTestEnv(t, memorydb.New()).engine, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)

	// A fresh engine has applied nothing but the checkpoint says otherwise.
	_, err = NewRunner(cfg, newTestEnv(t, memorydb.New()).engine, nil, nil, nil).Run(context.Background())
	require.ErrorContains(t, err, "does not match checkpoint")
}

func TestRunnerValidatesConfig(t *testing.T) {
	env := newTestEnv(t, memorydb.New())

	_, err := NewRunner(RunConfig{InputPath: "x"}, env.engine, nil, nil, nil).Run(context.Background())
	require.Error(t, err)

	_, err = NewRunner(RunConfig{BatchSize: 1}, nil, nil, nil, nil).Run(context.Background())
	require.Error(t, err)

	_, err = NewRunner(RunConfig{InputPath: filepath.Join(t.TempDir(), "missing.jsonl"), BatchSize: 1}, env.engine, nil, nil, nil).Run(context.Background())
	require.Error(t, err)
}

func TestRunnerRejectsReplayedSignedRequest(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	env := newTestEnvWithAuth(t, memorydb.New(), auth.Signature{}, signer)

	sign := func(req model.Request) string {
		payload, err := req.SigningPayload()
		require.NoError(t, err)
		sig, err := crypto.Sign(crypto.Keccak256(payload), key)
		require.NoError(t, err)
		req.Signature = hexutil.Encode(sig)
		line, err := json.Marshal(req)
		require.NoError(t, err)
		return string(line)
	}
	deposit := model.Request{Op: model.OpAddLiquidity, Account: signer.Hex(), Amount0: "10", Asset0: 1, Amount1: "20", Asset1: 2, Deadline: 1000, Nonce: 1}
	first := sign(deposit)
	deposit.Amount0, deposit.Amount1 = "5", "10"
	stale := sign(deposit)
	deposit.Nonce = 0
	unsigned := sign(deposit)
	deposit.Nonce = 2
	next := sign(deposit)

	errs := storage.NewMemoryStorage()
	cfg := RunConfig{InputPath: writeRequests(t, first, first, stale, unsigned, next), BatchSize: 10}
	summary, err := NewRunner(cfg, env.engine, errs, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Applied: 2, Rejected: 3}, summary)
	for _, rejected := range errs.Errors() {
		require.Contains(t, rejected.Error, "nonce")
	}

	require.Equal(t, uint64(985), env.ledger.BalanceOf(1, signer).Uint64())
	require.Equal(t, uint64(970), env.ledger.BalanceOf(2, signer).Uint64())
	nonce, err := env.engine.Nonce(signer)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)
}
