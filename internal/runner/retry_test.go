package runner

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dexEngine/internal/model"
	"dexEngine/internal/storage"
)

func TestWithRetry(t *testing.T) {
	var calls int
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	var calls int
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

type flakySink struct {
	failures int
	batches  int
}

func (s *flakySink) PutEventBatch([]model.EventRecord) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("flaky")
	}
	s.batches++
	return nil
}

func TestRetrySink(t *testing.T) {
	sink := &flakySink{failures: 2}
	retry := NewRetrySink(context.Background(), sink, 2, time.Millisecond, nil)
	if err := retry.PutEventBatch([]model.EventRecord{{Seq: 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.batches != 1 {
		t.Fatalf("expected one stored batch, got %d", sink.batches)
	}
}

func TestRetryEachDoesNotDuplicateHealthySinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	flaky := &flakySink{failures: 1}
	sink := RetryEach(context.Background(), 2, time.Millisecond, nil, storage.NewJsonlStorage(path), nil, flaky)
	if len(sink) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(sink))
	}

	records := []model.EventRecord{{Seq: 1}, {Seq: 1, Index: 1}}
	if err := sink.PutEventBatch(records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flaky.batches != 1 {
		t.Fatalf("expected one stored batch, got %d", flaky.batches)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
	}
	if lines != len(records) {
		t.Fatalf("expected %d lines, got %d", len(records), lines)
	}
}
