package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dexEngine/internal/model"
	"dexEngine/internal/storage"
)

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// RetrySink retries failed event writes with exponential backoff.
type RetrySink struct {
	ctx        context.Context
	sink       storage.EventStorage
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewRetrySink(ctx context.Context, sink storage.EventStorage, maxRetries int, backoff time.Duration, logger *zap.Logger) *RetrySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrySink{ctx: ctx, sink: sink, maxRetries: maxRetries, backoff: backoff, logger: logger}
}

func (s *RetrySink) PutEventBatch(records []model.EventRecord) error {
	return withRetry(s.ctx, s.maxRetries, s.backoff, func(context.Context) error {
		err := s.sink.PutEventBatch(records)
		if err != nil {
			s.logger.Warn("store events failed", zap.Error(err), zap.Int("events", len(records)))
		}
		return err
	})
}

// RetryEach gives every sink its own retry loop, so a failing sink is retried
// without resending the batch to sinks that already stored it.
func RetryEach(ctx context.Context, maxRetries int, backoff time.Duration, logger *zap.Logger, sinks ...storage.EventStorage) storage.Multi {
	out := make(storage.Multi, 0, len(sinks))
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		out = append(out, NewRetrySink(ctx, sink, maxRetries, backoff, logger))
	}
	return out
}
