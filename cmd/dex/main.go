package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dexEngine/internal/auth"
	"dexEngine/internal/chain"
	"dexEngine/internal/config"
	"dexEngine/internal/dex"
	"dexEngine/internal/metrics"
	"dexEngine/internal/runner"
	"dexEngine/internal/storage"
	"dexEngine/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "dex",
		Short:        "Constant-product liquidity pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a JSONL request file to the engine",
		RunE:  runApply,
	}

	addEngineFlags(applyCmd)
	applyCmd.Flags().String("in", "", "input requests JSONL")
	applyCmd.Flags().String("events-out", "./data/events.jsonl", "output events JSONL")
	applyCmd.Flags().String("errors-out", "./data/request_errors.jsonl", "rejected requests JSONL")
	applyCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	applyCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	applyCmd.Flags().Uint64("batch-size", 100, "requests per batch")
	applyCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	applyCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	applyCmd.Flags().String("auth-mode", auth.ModeTrusted, "request authentication (trusted, signature)")
	applyCmd.Flags().String("rpc", "", "optional RPC URL, deadlines then follow the chain head time")
	applyCmd.Flags().Duration("rpc-timeout", 5*time.Second, "timeout for chain head requests")
	applyCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and pool snapshots")
	applyCmd.Flags().String("metrics-file", "", "optional Prometheus textfile written after the run")
	applyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(applyCmd)
	root.AddCommand(newPriceCmd())
	root.AddCommand(newPoolsCmd())
	root.AddCommand(newStatsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	params := dex.DefaultParams()
	cmd.Flags().String("datadir", "./data/state", "engine state directory")
	cmd.Flags().String("genesis", "", "genesis file used to initialize an empty datadir")
	cmd.Flags().Uint64("fee-numerator", params.Fee.Numerator, "swap fee numerator")
	cmd.Flags().Uint64("fee-denominator", params.Fee.Denominator, "swap fee denominator")
	cmd.Flags().Uint8("pool-token-decimals", params.PoolTokenDecimals, "decimals of new pool tokens")
	cmd.Flags().String("pool-token-min-balance", params.PoolTokenMinBalance.Dec(), "minimum balance of new pool tokens")
}

func runApply(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	authenticator, err := auth.New(cfg.AuthMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []storage.EventStorage{storage.NewJsonlStorage(cfg.EventsOut)}
	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store.EventSink(ctx))
	}

	var clock dex.Clock = dex.SystemClock
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		chainID, err := chainClient.GetChainID(ctx)
		if err != nil {
			return fmt.Errorf("get chain id: %w", err)
		}
		logger.Info("chain clock enabled", zap.String("chain_id", chainID.String()))
		clock = chain.NewHeadClock(chainClient, dex.SystemClock, cfg.RPCTimeout, logger)
	}

	reg := prometheus.NewRegistry()
	state, err := openState(cfg.Engine, dex.Deps{
		Clock:   clock,
		Auth:    authenticator,
		Sink:    runner.RetryEach(ctx, cfg.MaxRetries, cfg.RetryBackoff, logger, sinks...),
		Metrics: metrics.New(reg),
	}, false, logger)
	if err != nil {
		return err
	}
	defer state.Close()

	r := runner.NewRunner(runner.RunConfig{
		InputPath:         cfg.Input,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		StatePath:         cfg.Engine.LedgerPath(),
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, state.engine, storage.NewJsonlStorage(cfg.ErrorsOut), state.ledger, logger)

	logger.Info("apply start",
		zap.String("input", cfg.Input),
		zap.String("datadir", cfg.Engine.DataDir),
		zap.String("events_out", cfg.EventsOut),
		zap.String("auth_mode", cfg.AuthMode),
		zap.Bool("chain_clock", cfg.RPCURL != ""),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	summary, runErr := r.Run(ctx)
	logger.Info("apply finished", zap.Int("applied", summary.Applied), zap.Int("rejected", summary.Rejected))

	if store != nil {
		pools, err := state.engine.Pools()
		if err != nil {
			return err
		}
		if err := store.UpsertPools(ctx, pools); err != nil {
			return fmt.Errorf("store pools: %w", err)
		}
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return runErr
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
