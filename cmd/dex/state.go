package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"go.uber.org/zap"

	"dexEngine/internal/config"
	"dexEngine/internal/dex"
	"dexEngine/internal/ledger"
)

const (
	registryCache   = 16
	registryHandles = 16
)

// genesisFile seeds a fresh data directory.
type genesisFile struct {
	Ledger ledger.Genesis    `json:"ledger"`
	Dex    dex.GenesisConfig `json:"dex"`
}

func loadGenesis(path string) (genesisFile, error) {
	var g genesisFile
	data, err := os.ReadFile(path)
	if err != nil {
		return g, fmt.Errorf("read genesis: %w", err)
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("parse genesis: %w", err)
	}
	return g, nil
}

// engineState is an opened data directory.
type engineState struct {
	cfg    config.EngineConfig
	db     *leveldb.Database
	ledger *ledger.Memory
	engine *dex.Engine
}

func (s *engineState) Close() error {
	return s.db.Close()
}

// openState opens the registry and ledger under the data directory. A data
// directory without a ledger file is initialized from the genesis file,
// including its pools, and the ledger is written out right away.
func openState(cfg config.EngineConfig, deps dex.Deps, readonly bool, logger *zap.Logger) (*engineState, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}

	var (
		mem     *ledger.Memory
		genesis *genesisFile
	)
	if _, err := os.Stat(cfg.LedgerPath()); err == nil {
		mem, err = ledger.LoadFile(cfg.LedgerPath())
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat ledger: %w", err)
	} else if readonly {
		return nil, fmt.Errorf("no ledger at %s, run apply first", cfg.LedgerPath())
	} else {
		if cfg.Genesis == "" {
			return nil, fmt.Errorf("no ledger at %s and no genesis file configured", cfg.LedgerPath())
		}
		g, err := loadGenesis(cfg.Genesis)
		if err != nil {
			return nil, err
		}
		mem, err = ledger.Import(g.Ledger)
		if err != nil {
			return nil, fmt.Errorf("import genesis ledger: %w", err)
		}
		genesis = &g
	}

	db, err := leveldb.New(cfg.RegistryPath(), registryCache, registryHandles, "dex/registry/", readonly)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	state := &engineState{cfg: cfg, db: db, ledger: mem}

	deps.Ledger = mem
	deps.Registry = dex.NewPoolRegistry(db)
	state.engine, err = dex.NewEngine(params, deps, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	if genesis != nil {
		if err := state.initGenesis(genesis.Dex, logger); err != nil {
			db.Close()
			return nil, err
		}
	}
	return state, nil
}

func (s *engineState) initGenesis(cfg dex.GenesisConfig, logger *zap.Logger) error {
	seq, err := s.engine.LastSeq()
	if err != nil {
		return err
	}
	if seq != 0 {
		return fmt.Errorf("registry at %s already holds %d operations but the ledger file is missing", s.cfg.RegistryPath(), seq)
	}
	if err := s.engine.InitGenesis(cfg); err != nil {
		return err
	}
	if err := s.ledger.SaveFile(s.cfg.LedgerPath()); err != nil {
		return err
	}
	logger.Info("genesis applied", zap.String("genesis", s.cfg.Genesis), zap.Int("pools", len(cfg.Pools)))
	return nil
}
