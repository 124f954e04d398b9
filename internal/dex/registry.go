package dex

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"dexEngine/internal/model"
)

// Database key schema:
//
//	"p" + pair -> RLP(poolRecord)
//	"P" + pair -> RLP(price as big.Int)
//	"NextPoolToken" -> big endian uint32, counts down from MaxUint32
//	"LastSeq" -> big endian uint64, last assigned operation sequence
//	"n" + account -> big endian uint64, last nonce used by account
var (
	poolPrefix       = []byte("p")
	pricePrefix      = []byte("P")
	noncePrefix      = []byte("n")
	nextPoolTokenKey = []byte("NextPoolToken")
	lastSeqKey       = []byte("LastSeq")
)

type poolRecord struct {
	PoolToken uint32
	Account   common.Address
}

func poolKey(pair AssetPair) []byte {
	return append(append([]byte{}, poolPrefix...), pair.key()...)
}

func priceKey(pair AssetPair) []byte {
	return append(append([]byte{}, pricePrefix...), pair.key()...)
}

func nonceKey(account common.Address) []byte {
	return append(append([]byte{}, noncePrefix...), account.Bytes()...)
}

// PoolRegistry maps canonical pairs to pools and to their last cached price.
// Pools are never deleted; an emptied pool keeps its pool token.
type PoolRegistry struct {
	db ethdb.KeyValueStore

	mu    sync.RWMutex
	pools map[AssetPair]LiquidityPool
}

func NewPoolRegistry(db ethdb.KeyValueStore) *PoolRegistry {
	return &PoolRegistry{
		db:    db,
		pools: make(map[AssetPair]LiquidityPool),
	}
}

// Get looks up the pool for pair without creating it.
func (r *PoolRegistry) Get(pair AssetPair) (LiquidityPool, bool, error) {
	r.mu.RLock()
	pool, ok := r.pools[pair]
	r.mu.RUnlock()
	if ok {
		return pool, true, nil
	}

	data, ok, err := r.read(poolKey(pair))
	if err != nil || !ok {
		return LiquidityPool{}, false, err
	}
	var rec poolRecord
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return LiquidityPool{}, false, fmt.Errorf("decode pool %s: %w", pair, err)
	}
	pool = LiquidityPool{Pair: pair, PoolToken: model.AssetID(rec.PoolToken), Account: rec.Account}

	r.mu.Lock()
	r.pools[pair] = pool
	r.mu.Unlock()
	return pool, true, nil
}

// Price returns the cached oracle value for pair.
func (r *PoolRegistry) Price(pair AssetPair) (*uint256.Int, bool, error) {
	data, ok, err := r.read(priceKey(pair))
	if err != nil || !ok {
		return nil, false, err
	}
	price := new(big.Int)
	if err := rlp.DecodeBytes(data, price); err != nil {
		return nil, false, fmt.Errorf("decode price %s: %w", pair, err)
	}
	value, overflow := uint256.FromBig(price)
	if overflow {
		return nil, false, fmt.Errorf("decode price %s: value exceeds 256 bits", pair)
	}
	return value, true, nil
}

// Pools returns every registered pool in key order.
func (r *PoolRegistry) Pools() ([]LiquidityPool, error) {
	it := r.db.NewIterator(poolPrefix, nil)
	defer it.Release()

	var pools []LiquidityPool
	for it.Next() {
		pair, err := pairFromKey(it.Key()[len(poolPrefix):])
		if err != nil {
			return nil, err
		}
		var rec poolRecord
		if err := rlp.DecodeBytes(it.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode pool %s: %w", pair, err)
		}
		pools = append(pools, LiquidityPool{Pair: pair, PoolToken: model.AssetID(rec.PoolToken), Account: rec.Account})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return pools, nil
}

// LastSeq returns the sequence number of the last committed operation.
func (r *PoolRegistry) LastSeq() (uint64, error) {
	data, ok, err := r.read(lastSeqKey)
	if err != nil || !ok {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid sequence length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Nonce returns the last nonce account used in a committed operation, or zero.
func (r *PoolRegistry) Nonce(account common.Address) (uint64, error) {
	data, ok, err := r.read(nonceKey(account))
	if err != nil || !ok {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid nonce length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (r *PoolRegistry) nextPoolToken() (model.AssetID, bool, error) {
	data, ok, err := r.read(nextPoolTokenKey)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return model.AssetID(math.MaxUint32), true, nil
	}
	if len(data) == 0 {
		return 0, false, nil
	}
	if len(data) != 4 {
		return 0, false, fmt.Errorf("invalid pool token counter length %d", len(data))
	}
	return model.AssetID(binary.BigEndian.Uint32(data)), true, nil
}

func (r *PoolRegistry) read(key []byte) ([]byte, bool, error) {
	ok, err := r.db.Has(key)
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	data, err := r.db.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	return data, true, nil
}

// Begin starts a transaction. Nothing reaches the database until Commit.
func (r *PoolRegistry) Begin() *RegistryTxn {
	return &RegistryTxn{
		reg:     r,
		batch:   r.db.NewBatch(),
		created: make(map[AssetPair]LiquidityPool),
		nonces:  make(map[common.Address]uint64),
	}
}

// RegistryTxn stages registry writes for a single operation.
type RegistryTxn struct {
	reg     *PoolRegistry
	batch   ethdb.Batch
	created map[AssetPair]LiquidityPool
	nonces  map[common.Address]uint64
	seq     uint64

	// staged pool-token counter, valid once counted is set
	counted bool
	nextID  model.AssetID
	nextOK  bool
}

// Get sees pools created earlier in the same transaction.
func (t *RegistryTxn) Get(pair AssetPair) (LiquidityPool, bool, error) {
	if pool, ok := t.created[pair]; ok {
		return pool, true, nil
	}
	return t.reg.Get(pair)
}

// GetOrCreate returns the pool for pair, creating it with the next free
// pool-token id when missing. created reports whether a new pool was made.
func (t *RegistryTxn) GetOrCreate(pair AssetPair, create func(AssetPair, model.AssetID) (LiquidityPool, error)) (LiquidityPool, bool, error) {
	pool, ok, err := t.Get(pair)
	if err != nil {
		return LiquidityPool{}, false, err
	}
	if ok {
		return pool, false, nil
	}

	if !t.counted {
		t.nextID, t.nextOK, err = t.reg.nextPoolToken()
		if err != nil {
			return LiquidityPool{}, false, err
		}
		t.counted = true
	}
	id := t.nextID
	if !t.nextOK {
		return LiquidityPool{}, false, ErrOverflow.Wrap("pool token identifiers exhausted")
	}

	pool, err = create(pair, id)
	if err != nil {
		return LiquidityPool{}, false, err
	}

	data, err := rlp.EncodeToBytes(poolRecord{PoolToken: uint32(pool.PoolToken), Account: pool.Account})
	if err != nil {
		return LiquidityPool{}, false, fmt.Errorf("encode pool %s: %w", pair, err)
	}
	if err := t.batch.Put(poolKey(pair), data); err != nil {
		return LiquidityPool{}, false, err
	}

	// An empty value marks the counter as exhausted after id 0.
	next := []byte{}
	if id > 0 {
		next = binary.BigEndian.AppendUint32(nil, uint32(id)-1)
	}
	if err := t.batch.Put(nextPoolTokenKey, next); err != nil {
		return LiquidityPool{}, false, err
	}
	if id > 0 {
		t.nextID = id - 1
	} else {
		t.nextOK = false
	}

	t.created[pair] = pool
	return pool, true, nil
}

// SetPrice stages the oracle value for pair.
func (t *RegistryTxn) SetPrice(pair AssetPair, price *uint256.Int) error {
	data, err := rlp.EncodeToBytes(price.ToBig())
	if err != nil {
		return fmt.Errorf("encode price %s: %w", pair, err)
	}
	return t.batch.Put(priceKey(pair), data)
}

// UseNonce stages nonce as the last one used by account. The nonce must be
// greater than every nonce the account used before.
func (t *RegistryTxn) UseNonce(account common.Address, nonce uint64) error {
	last, ok := t.nonces[account]
	if !ok {
		var err error
		if last, err = t.reg.Nonce(account); err != nil {
			return err
		}
	}
	if nonce <= last {
		return ErrBadOrigin.Wrapf("nonce %d already used, last nonce is %d", nonce, last)
	}
	if err := t.batch.Put(nonceKey(account), binary.BigEndian.AppendUint64(nil, nonce)); err != nil {
		return err
	}
	t.nonces[account] = nonce
	return nil
}

// NextSeq reserves the sequence number for this operation.
func (t *RegistryTxn) NextSeq() (uint64, error) {
	if t.seq != 0 {
		return t.seq, nil
	}
	last, err := t.reg.LastSeq()
	if err != nil {
		return 0, err
	}
	t.seq = last + 1
	if err := t.batch.Put(lastSeqKey, binary.BigEndian.AppendUint64(nil, t.seq)); err != nil {
		return 0, err
	}
	return t.seq, nil
}

// Commit writes all staged changes atomically.
func (t *RegistryTxn) Commit() error {
	if err := t.batch.Write(); err != nil {
		return fmt.Errorf("commit registry: %w", err)
	}
	if len(t.created) > 0 {
		t.reg.mu.Lock()
		for pair, pool := range t.created {
			t.reg.pools[pair] = pool
		}
		t.reg.mu.Unlock()
	}
	return nil
}
