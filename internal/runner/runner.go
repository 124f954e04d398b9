package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"dexEngine/internal/dex"
	"dexEngine/internal/model"
	"dexEngine/internal/storage"
)

// RunConfig holds runtime settings for the request applier.
type RunConfig struct {
	InputPath         string
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	StatePath         string
	MaxRetries        int
	RetryBackoff      time.Duration
}

// StateSaver persists ledger state at batch boundaries.
type StateSaver interface {
	SaveFile(path string) error
}

// Runner applies a JSONL request file to the engine in order.
type Runner struct {
	cfg        RunConfig
	engine     *dex.Engine
	errors     storage.ErrorStorage
	state      StateSaver
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// Summary counts the outcome of a run.
type Summary struct {
	Applied  int
	Rejected int
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, engine *dex.Engine, errorSink storage.ErrorStorage, state StateSaver, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		engine:     engine,
		errors:     errorSink,
		state:      state,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

type requestLine struct {
	req model.Request
	err error
}

// Run applies every request after the checkpoint.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if r.engine == nil {
		return summary, fmt.Errorf("engine is nil")
	}
	if r.cfg.BatchSize == 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}

	lines, err := readRequests(r.cfg.InputPath)
	if err != nil {
		return summary, err
	}

	from := uint64(1)
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return summary, err
	}
	if ok {
		seq, err := r.engine.LastSeq()
		if err != nil {
			return summary, fmt.Errorf("read engine sequence: %w", err)
		}
		if seq != cp.EngineSeq {
			return summary, fmt.Errorf("engine state at seq %d does not match checkpoint seq %d", seq, cp.EngineSeq)
		}
		from = cp.LastAppliedRequest + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_applied", cp.LastAppliedRequest), zap.Uint64("from", from))
	}

	to := uint64(len(lines))
	if from > to {
		r.logger.Info("nothing to apply", zap.Uint64("from", from), zap.Uint64("to", to))
		return summary, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, batch := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		rejected := make([]model.RequestError, 0)
		for n := batch.From; n <= batch.To; n++ {
			line := lines[n-1]
			err := line.err
			if err == nil {
				err = r.apply(line.req)
			}
			if err != nil {
				rejected = append(rejected, buildRequestError(n, line.req, err))
				r.logger.Debug("request rejected", zap.Uint64("request", n), zap.String("op", line.req.Op), zap.Error(err))
				continue
			}
			summary.Applied++
		}
		summary.Rejected += len(rejected)

		if err := r.finishBatch(ctx, batch, rejected); err != nil {
			return summary, err
		}

		r.logger.Info("batch complete",
			zap.Uint64("from", batch.From),
			zap.Uint64("to", batch.To),
			zap.Int("rejected", len(rejected)),
		)
	}

	return summary, nil
}

func (r *Runner) apply(req model.Request) error {
	call, err := ParseRequest(req)
	if err != nil {
		return err
	}

	switch call.Op {
	case model.OpAddLiquidity:
		return r.engine.AddLiquidity(call.Origin, call.Amount0, call.Asset0, call.Amount1, call.Asset1, call.Deadline)
	case model.OpRemoveLiquidity:
		return r.engine.RemoveLiquidity(call.Origin, call.Amount0, call.Asset0, call.Asset1, call.Deadline)
	case model.OpSwap:
		out, err := r.engine.Swap(call.Origin, call.Amount0, call.Asset0, call.Asset1)
		if err != nil {
			return err
		}
		r.logger.Debug("swap applied", zap.Stringer("asset_in", call.Asset0), zap.Stringer("asset_out", call.Asset1), zap.String("amount_out", out.Dec()))
		return nil
	default:
		return fmt.Errorf("unknown op %q", call.Op)
	}
}

func (r *Runner) finishBatch(ctx context.Context, batch RequestRange, rejected []model.RequestError) error {
	if r.errors != nil && len(rejected) > 0 {
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(context.Context) error {
			err := r.errors.PutRequestErrors(rejected)
			if err != nil {
				r.logger.Warn("store request errors failed", zap.Error(err), zap.Uint64("from", batch.From), zap.Uint64("to", batch.To))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("store request errors: %w", err)
		}
	}

	if r.state != nil && r.cfg.StatePath != "" {
		if err := r.state.SaveFile(r.cfg.StatePath); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	seq, err := r.engine.LastSeq()
	if err != nil {
		return fmt.Errorf("read engine sequence: %w", err)
	}
	return r.checkpoint.Save(batch.To, seq)
}

func readRequests(path string) ([]requestLine, error) {
	if path == "" {
		return nil, fmt.Errorf("input path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var lines []requestLine
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var req model.Request
		if err := json.Unmarshal(line, &req); err != nil {
			lines = append(lines, requestLine{err: fmt.Errorf("decode request: %w", err)})
			continue
		}
		lines = append(lines, requestLine{req: req})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return lines, nil
}
