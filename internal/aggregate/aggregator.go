package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"dexEngine/internal/model"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
	// SwapFee is the share of swap input kept by the pool. When set, window
	// fees are computed from the summed input instead of the per-swap fees.
	SwapFee *big.Rat
}

// MetricsStore receives finished window metrics.
type MetricsStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// AssetRegistry resolves asset decimals for display.
type AssetRegistry interface {
	Metadata(id model.AssetID) (model.AssetMeta, bool)
}

// Aggregator aggregates engine events into pool window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	assets       AssetRegistry
	logger       *zap.Logger
	accumulators map[model.AssetID]*Accumulator
}

func NewAggregator(cfg Config, store MetricsStore, assets AssetRegistry, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		assets:       assets,
		logger:       logger,
		accumulators: make(map[model.AssetID]*Accumulator),
	}
}

// Run executes aggregation over an event log JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.StoredEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode event record", zap.Error(err))
			continue
		}

		if record.Timestamp <= startTs {
			skipped++
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		key := record.PoolMeta.PoolToken
		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[key] = acc
		} else if acc.WindowStart != windowStart {
			batch = append(batch, a.windowMetrics(acc))
			windows++
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[key] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.Stringer("pool_token", key), zap.String("event", record.EventName))
			continue
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	keys := make([]model.AssetID, 0, len(a.accumulators))
	for key := range a.accumulators {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		batch = append(batch, a.windowMetrics(a.accumulators[key]))
		windows++
	}
	a.accumulators = make(map[model.AssetID]*Accumulator)

	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records a timestamp before every open window so a resumed run
// rebuilds those windows from their first event.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) windowMetrics(acc *Accumulator) model.PoolWindowMetrics {
	decimals0 := a.decimals(acc.PoolMeta.Asset0)
	decimals1 := a.decimals(acc.PoolMeta.Asset1)

	var reserve0, reserve1 *string
	if acc.Reserve0 != nil {
		val := formatTokenAmount(acc.Reserve0, decimals0)
		reserve0 = &val
	}
	if acc.Reserve1 != nil {
		val := formatTokenAmount(acc.Reserve1, decimals1)
		reserve1 = &val
	}

	fee0, fee1 := windowFees(acc, a.cfg.SwapFee)
	feeRate0, feeRate1 := computeFeeRates(fee0, fee1, acc.Reserve0, acc.Reserve1)
	apr := computeAPR(feeRate0, feeRate1, a.cfg.WindowSeconds)

	return model.PoolWindowMetrics{
		PoolToken:      acc.PoolMeta.PoolToken,
		Asset0:         acc.PoolMeta.Asset0,
		Asset1:         acc.PoolMeta.Asset1,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		DepositCount:   acc.DepositCount,
		WithdrawCount:  acc.WithdrawCount,
		Volume0:        formatTokenAmount(acc.Volume0, decimals0),
		Volume1:        formatTokenAmount(acc.Volume1, decimals1),
		Fee0:           formatRatAmount(fee0, decimals0),
		Fee1:           formatRatAmount(fee1, decimals1),
		Reserve0:       reserve0,
		Reserve1:       reserve1,
		FeeRate0:       ratString(feeRate0),
		FeeRate1:       ratString(feeRate1),
		APR:            ratString(apr),
	}
}

func (a *Aggregator) decimals(id model.AssetID) uint8 {
	if a.assets == nil {
		return 0
	}
	meta, ok := a.assets.Metadata(id)
	if !ok {
		a.logger.Debug("unknown asset, using base units", zap.Stringer("asset", id))
		return 0
	}
	return meta.Decimals
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenWindowStart(acc map[model.AssetID]*Accumulator) uint64 {
	var earliest uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if earliest == 0 || entry.WindowStart < earliest {
			earliest = entry.WindowStart
		}
	}
	return earliest
}

