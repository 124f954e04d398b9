package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"dexEngine/internal/dex"
)

// EnvPrefix is prepended to every environment variable, e.g. DEX_DATADIR.
const EnvPrefix = "DEX"

// EngineConfig locates engine state and sets its parameters.
type EngineConfig struct {
	DataDir             string
	Genesis             string
	FeeNumerator        uint64
	FeeDenominator      uint64
	PoolTokenDecimals   uint8
	PoolTokenMinBalance string
}

// RegistryPath is the leveldb directory of the pool registry.
func (c EngineConfig) RegistryPath() string {
	return filepath.Join(c.DataDir, "registry")
}

// LedgerPath is the JSON file holding ledger balances between runs.
func (c EngineConfig) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.json")
}

// Params converts the configured values into engine parameters.
func (c EngineConfig) Params() (dex.Params, error) {
	params := dex.DefaultParams()
	params.Fee = dex.Fee{Numerator: c.FeeNumerator, Denominator: c.FeeDenominator}
	params.PoolTokenDecimals = c.PoolTokenDecimals

	minBalance, err := dex.ParseAmount(c.PoolTokenMinBalance)
	if err != nil {
		return dex.Params{}, fmt.Errorf("pool-token-min-balance: %w", err)
	}
	params.PoolTokenMinBalance = minBalance

	if err := params.Validate(); err != nil {
		return dex.Params{}, err
	}
	return params, nil
}

// ApplyConfig holds configuration for the apply command.
type ApplyConfig struct {
	Engine            EngineConfig
	Input             string
	EventsOut         string
	ErrorsOut         string
	Checkpoint        string
	CheckpointEnabled bool
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	AuthMode          string
	RPCURL            string
	RPCTimeout        time.Duration
	PGDSN             string
	MetricsFile       string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into ApplyConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (ApplyConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"events-out":         "./data/events.jsonl",
		"errors-out":         "./data/request_errors.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"batch-size":         uint64(100),
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"auth-mode":          "trusted",
		"rpc-timeout":        5 * time.Second,
	})
	if err != nil {
		return ApplyConfig{}, err
	}

	cfg := ApplyConfig{
		Engine:            engineConfig(v),
		Input:             v.GetString("in"),
		EventsOut:         v.GetString("events-out"),
		ErrorsOut:         v.GetString("errors-out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		BatchSize:         v.GetUint64("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		AuthMode:          v.GetString("auth-mode"),
		RPCURL:            v.GetString("rpc"),
		RPCTimeout:        v.GetDuration("rpc-timeout"),
		PGDSN:             v.GetString("pg-dsn"),
		MetricsFile:       v.GetString("metrics-file"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// QueryConfig holds configuration for the read-only price and pools commands.
type QueryConfig struct {
	Engine   EngineConfig
	LogLevel string
}

// LoadQuery merges config file, environment variables, and flags into QueryConfig.
func LoadQuery(cfgFile string, flags *pflag.FlagSet) (QueryConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return QueryConfig{}, err
	}
	return QueryConfig{
		Engine:   engineConfig(v),
		LogLevel: v.GetString("log-level"),
	}, nil
}

func engineConfig(v *viper.Viper) EngineConfig {
	return EngineConfig{
		DataDir:             v.GetString("datadir"),
		Genesis:             v.GetString("genesis"),
		FeeNumerator:        v.GetUint64("fee-numerator"),
		FeeDenominator:      v.GetUint64("fee-denominator"),
		PoolTokenDecimals:   uint8(v.GetUint("pool-token-decimals")),
		PoolTokenMinBalance: v.GetString("pool-token-min-balance"),
	}
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	params := dex.DefaultParams()
	v.SetDefault("datadir", "./data/state")
	v.SetDefault("fee-numerator", params.Fee.Numerator)
	v.SetDefault("fee-denominator", params.Fee.Denominator)
	v.SetDefault("pool-token-decimals", params.PoolTokenDecimals)
	v.SetDefault("pool-token-min-balance", params.PoolTokenMinBalance.Dec())
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

