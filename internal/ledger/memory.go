package ledger

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexEngine/internal/model"
)

type asset struct {
	meta       model.AssetMeta
	owner      common.Address
	minBalance *uint256.Int
	supply     *uint256.Int
	balances   map[common.Address]*uint256.Int
}

// Memory is a multi-asset ledger held in memory. Every mutation appends an
// undo entry so callers can roll back to an earlier Snapshot.
type Memory struct {
	mu     sync.RWMutex
	assets map[model.AssetID]*asset
	undo   []func()
}

func NewMemory() *Memory {
	return &Memory{assets: make(map[model.AssetID]*asset)}
}

// Snapshot returns a revision id for the current state.
func (m *Memory) Snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo)
}

// RevertToSnapshot undoes every mutation made after revid was taken.
func (m *Memory) RevertToSnapshot(revid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if revid < 0 || revid > len(m.undo) {
		return
	}
	for i := len(m.undo) - 1; i >= revid; i-- {
		m.undo[i]()
	}
	m.undo = m.undo[:revid]
}

// Commit drops the undo log. Earlier revision ids become invalid.
func (m *Memory) Commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = m.undo[:0]
}

func (m *Memory) AssetExists(id model.AssetID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.assets[id]
	return ok
}

// CreateAsset registers a new asset with zero supply.
func (m *Memory) CreateAsset(id model.AssetID, owner common.Address, minBalance *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[id]; ok {
		return ErrAssetExists.Wrapf("asset %s", id)
	}
	if minBalance == nil || minBalance.IsZero() {
		return ErrBelowMinimum.Wrapf("asset %s: minimum balance must be positive", id)
	}
	m.assets[id] = &asset{
		meta:       model.AssetMeta{ID: id},
		owner:      owner,
		minBalance: minBalance.Clone(),
		supply:     new(uint256.Int),
		balances:   make(map[common.Address]*uint256.Int),
	}
	m.undo = append(m.undo, func() { delete(m.assets, id) })
	return nil
}

func (m *Memory) SetMetadata(id model.AssetID, name, symbol string, decimals uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return ErrUnknownAsset.Wrapf("asset %s", id)
	}
	prev := a.meta
	a.meta = model.AssetMeta{ID: id, Name: name, Symbol: symbol, Decimals: decimals}
	m.undo = append(m.undo, func() { a.meta = prev })
	return nil
}

// Metadata returns the asset's metadata.
func (m *Memory) Metadata(id model.AssetID) (model.AssetMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[id]
	if !ok {
		return model.AssetMeta{}, false
	}
	return a.meta, true
}

// Symbol returns the asset symbol, or an empty string for unknown assets.
func (m *Memory) Symbol(id model.AssetID) string {
	meta, _ := m.Metadata(id)
	return meta.Symbol
}

// BalanceOf returns a copy of the balance; unknown assets and accounts hold zero.
func (m *Memory) BalanceOf(id model.AssetID, account common.Address) *uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[id]
	if !ok {
		return new(uint256.Int)
	}
	if bal, ok := a.balances[account]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

func (m *Memory) TotalIssuance(id model.AssetID) *uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[id]
	if !ok {
		return new(uint256.Int)
	}
	return a.supply.Clone()
}

func (m *Memory) Transfer(id model.AssetID, from, to common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return ErrUnknownAsset.Wrapf("asset %s", id)
	}
	if amount.IsZero() || from == to {
		return nil
	}
	fromBal, toBal, err := a.transferBalances(from, to, amount)
	if err != nil {
		return err
	}
	m.setBalance(a, from, fromBal)
	m.setBalance(a, to, toBal)
	return nil
}

func (m *Memory) Mint(id model.AssetID, to common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return ErrUnknownAsset.Wrapf("asset %s", id)
	}
	if amount.IsZero() {
		return nil
	}
	supply, overflow := new(uint256.Int).AddOverflow(a.supply, amount)
	if overflow {
		return ErrOverflow.Wrapf("asset %s supply", id)
	}
	bal, err := a.credit(to, amount)
	if err != nil {
		return err
	}
	m.setSupply(a, supply)
	m.setBalance(a, to, bal)
	return nil
}

func (m *Memory) Burn(id model.AssetID, from common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return ErrUnknownAsset.Wrapf("asset %s", id)
	}
	if amount.IsZero() {
		return nil
	}
	bal, err := a.debit(from, amount)
	if err != nil {
		return err
	}
	supply, underflow := new(uint256.Int).SubOverflow(a.supply, amount)
	if underflow {
		return ErrOverflow.Wrapf("asset %s supply underflow", id)
	}
	m.setSupply(a, supply)
	m.setBalance(a, from, bal)
	return nil
}

func (a *asset) balance(account common.Address) *uint256.Int {
	if bal, ok := a.balances[account]; ok {
		return bal
	}
	return new(uint256.Int)
}

// debit returns the balance of account after removing amount.
func (a *asset) debit(account common.Address, amount *uint256.Int) (*uint256.Int, error) {
	bal, underflow := new(uint256.Int).SubOverflow(a.balance(account), amount)
	if underflow {
		return nil, ErrInsufficientBalance.Wrapf("asset %s account %s: need %s", a.meta.ID, account.Hex(), amount.Dec())
	}
	if !bal.IsZero() && bal.Lt(a.minBalance) {
		return nil, ErrBelowMinimum.Wrapf("asset %s account %s would keep %s", a.meta.ID, account.Hex(), bal.Dec())
	}
	return bal, nil
}

// credit returns the balance of account after adding amount.
func (a *asset) credit(account common.Address, amount *uint256.Int) (*uint256.Int, error) {
	bal, overflow := new(uint256.Int).AddOverflow(a.balance(account), amount)
	if overflow {
		return nil, ErrOverflow.Wrapf("asset %s account %s", a.meta.ID, account.Hex())
	}
	if bal.Lt(a.minBalance) {
		return nil, ErrBelowMinimum.Wrapf("asset %s account %s would hold %s", a.meta.ID, account.Hex(), bal.Dec())
	}
	return bal, nil
}

func (a *asset) transferBalances(from, to common.Address, amount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	fromBal, err := a.debit(from, amount)
	if err != nil {
		return nil, nil, err
	}
	toBal, err := a.credit(to, amount)
	if err != nil {
		return nil, nil, err
	}
	return fromBal, toBal, nil
}

func (m *Memory) setBalance(a *asset, account common.Address, bal *uint256.Int) {
	prev, existed := a.balances[account]
	if bal.IsZero() {
		delete(a.balances, account)
	} else {
		a.balances[account] = bal
	}
	m.undo = append(m.undo, func() {
		if existed {
			a.balances[account] = prev
		} else {
			delete(a.balances, account)
		}
	})
}

func (m *Memory) setSupply(a *asset, supply *uint256.Int) {
	prev := a.supply
	a.supply = supply
	m.undo = append(m.undo, func() { a.supply = prev })
}
