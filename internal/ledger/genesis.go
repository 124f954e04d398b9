package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexEngine/internal/model"
)

// Genesis is the JSON form of a ledger: every asset with its metadata and
// non-zero balances. Amounts are decimal strings.
type Genesis struct {
	Assets []AssetGenesis `json:"assets"`
}

type AssetGenesis struct {
	ID         model.AssetID    `json:"id"`
	Name       string           `json:"name"`
	Symbol     string           `json:"symbol"`
	Decimals   uint8            `json:"decimals"`
	Owner      common.Address   `json:"owner"`
	MinBalance string           `json:"min_balance"`
	Balances   []BalanceGenesis `json:"balances,omitempty"`
}

type BalanceGenesis struct {
	Account common.Address `json:"account"`
	Amount  string         `json:"amount"`
}

// Import builds a ledger from genesis. Supplies are the sum of balances.
func Import(g Genesis) (*Memory, error) {
	m := NewMemory()
	for _, ag := range g.Assets {
		minBalance, err := parseAmount(ag.MinBalance, "1")
		if err != nil {
			return nil, ErrInvalidGenesis.Wrapf("asset %s min balance: %s", ag.ID, err)
		}
		if err := m.CreateAsset(ag.ID, ag.Owner, minBalance); err != nil {
			return nil, err
		}
		if err := m.SetMetadata(ag.ID, ag.Name, ag.Symbol, ag.Decimals); err != nil {
			return nil, err
		}
		for _, bal := range ag.Balances {
			amount, err := parseAmount(bal.Amount, "")
			if err != nil {
				return nil, ErrInvalidGenesis.Wrapf("asset %s account %s: %s", ag.ID, bal.Account.Hex(), err)
			}
			if err := m.Mint(ag.ID, bal.Account, amount); err != nil {
				return nil, err
			}
		}
	}
	m.Commit()
	return m, nil
}

// Export returns the ledger contents ordered by asset id and account.
func (m *Memory) Export() Genesis {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]model.AssetID, 0, len(m.assets))
	for id := range m.assets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	g := Genesis{Assets: make([]AssetGenesis, 0, len(ids))}
	for _, id := range ids {
		a := m.assets[id]
		ag := AssetGenesis{
			ID:         id,
			Name:       a.meta.Name,
			Symbol:     a.meta.Symbol,
			Decimals:   a.meta.Decimals,
			Owner:      a.owner,
			MinBalance: a.minBalance.Dec(),
		}
		for account, bal := range a.balances {
			ag.Balances = append(ag.Balances, BalanceGenesis{Account: account, Amount: bal.Dec()})
		}
		sort.Slice(ag.Balances, func(i, j int) bool {
			return ag.Balances[i].Account.Cmp(ag.Balances[j].Account) < 0
		})
		g.Assets = append(g.Assets, ag)
	}
	return g
}

// LoadFile reads a ledger from a JSON file.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	return Import(g)
}

// SaveFile writes the ledger to path through a temporary file.
func (m *Memory) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(m.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write ledger tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename ledger: %w", err)
	}
	return nil
}

func parseAmount(input, fallback string) (*uint256.Int, error) {
	if input == "" {
		input = fallback
	}
	if input == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	return uint256.FromDecimal(input)
}
