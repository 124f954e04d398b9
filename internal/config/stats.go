package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"dexEngine/internal/dex"
)

// StatsConfig holds configuration for the stats command.
type StatsConfig struct {
	DataDir       string
	Input         string
	Window        string
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom string
	LogLevel      string

	FeeNumerator   uint64
	FeeDenominator uint64
}

// LoadStats merges config file, environment variables, and flags into StatsConfig.
func LoadStats(cfgFile string, flags *pflag.FlagSet) (StatsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"in":         "./data/events.jsonl",
		"batch-size": 1000,
		"window":     "1h",
	})
	if err != nil {
		return StatsConfig{}, err
	}

	cfg := StatsConfig{
		DataDir:       v.GetString("datadir"),
		Input:         v.GetString("in"),
		Window:        v.GetString("window"),
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: v.GetString("recompute-from"),
		LogLevel:      v.GetString("log-level"),

		FeeNumerator:   v.GetUint64("fee-numerator"),
		FeeDenominator: v.GetUint64("fee-denominator"),
	}

	return cfg, nil
}

// SwapFee returns the share of swap input pools keep as fee.
func (c StatsConfig) SwapFee() (*big.Rat, error) {
	fee := dex.Fee{Numerator: c.FeeNumerator, Denominator: c.FeeDenominator}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	den := new(big.Int).SetUint64(fee.Denominator)
	kept := new(big.Int).SetUint64(fee.Denominator - fee.Numerator)
	return new(big.Rat).SetFrac(kept, den), nil
}

// WindowSeconds parses the window duration into whole seconds.
func (c StatsConfig) WindowSeconds() (uint64, error) {
	window, err := time.ParseDuration(c.Window)
	if err != nil {
		return 0, fmt.Errorf("invalid window: %w", err)
	}
	if window <= 0 {
		return 0, fmt.Errorf("window must be positive")
	}
	seconds := uint64(window / time.Second)
	if seconds == 0 {
		return 0, fmt.Errorf("window must be at least 1s")
	}
	return seconds, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
