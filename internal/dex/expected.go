package dex

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexEngine/internal/model"
)

// Ledger holds fungible-asset balances. Reserves and pool-token supply are
// always read from it, never cached by the engine.
type Ledger interface {
	AssetExists(id model.AssetID) bool
	CreateAsset(id model.AssetID, owner common.Address, minBalance *uint256.Int) error
	SetMetadata(id model.AssetID, name, symbol string, decimals uint8) error
	Symbol(id model.AssetID) string

	BalanceOf(id model.AssetID, account common.Address) *uint256.Int
	TotalIssuance(id model.AssetID) *uint256.Int

	Transfer(id model.AssetID, from, to common.Address, amount *uint256.Int) error
	Mint(id model.AssetID, to common.Address, amount *uint256.Int) error
	Burn(id model.AssetID, from common.Address, amount *uint256.Int) error

	// Snapshot and RevertToSnapshot bracket an operation so a failure part
	// way through leaves no trace.
	Snapshot() int
	RevertToSnapshot(revid int)
}

// committer is implemented by ledgers that keep an undo log between
// snapshots. The engine commits after every successful operation.
type committer interface {
	Commit()
}

// Clock reports the current time in unix seconds.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// SystemClock reads the local wall clock.
var SystemClock = ClockFunc(func() uint64 { return uint64(time.Now().Unix()) })

// Origin is an unauthenticated request envelope. A non-zero Nonce must be
// greater than every nonce the account used before.
type Origin struct {
	Account   common.Address
	Nonce     uint64
	Payload   []byte
	Signature []byte
}

// Authenticator resolves an origin to the identity allowed to act.
type Authenticator interface {
	Authenticate(origin Origin) (common.Address, error)
}

// EventSink receives the events of successfully applied operations.
type EventSink interface {
	PutEventBatch(records []model.EventRecord) error
}
