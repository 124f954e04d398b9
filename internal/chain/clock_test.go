package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"

	"dexEngine/internal/dex"
)

type fakeHeaders struct {
	times []uint64
	err   error
}

func (f *fakeHeaders) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	if number != nil {
		return nil, errors.New("expected latest header request")
	}
	if f.err != nil {
		return nil, f.err
	}
	ts := f.times[0]
	if len(f.times) > 1 {
		f.times = f.times[1:]
	}
	return &types.Header{Time: ts}, nil
}

func TestHeadClock(t *testing.T) {
	headers := &fakeHeaders{times: []uint64{100, 120, 110}}
	clock := NewHeadClock(headers, nil, 0, nil)

	for _, want := range []uint64{100, 120, 120} {
		if got := clock.Now(); got != want {
			t.Fatalf("now mismatch: got %d want %d", got, want)
		}
	}
}

func TestHeadClockFallback(t *testing.T) {
	headers := &fakeHeaders{err: errors.New("connection refused")}
	clock := NewHeadClock(headers, dex.ClockFunc(func() uint64 { return 42 }), 0, nil)

	if got := clock.Now(); got != 42 {
		t.Fatalf("fallback mismatch: got %d", got)
	}
}
