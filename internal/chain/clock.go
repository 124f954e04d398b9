package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"dexEngine/internal/dex"
)

// HeaderReader is the part of Client the clock needs.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// HeadClock reports the timestamp of the latest block so deadlines follow
// chain time. When the node cannot be reached it falls back to another clock.
// The reported time never goes backwards.
type HeadClock struct {
	headers  HeaderReader
	fallback dex.Clock
	timeout  time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	last uint64
}

func NewHeadClock(headers HeaderReader, fallback dex.Clock, timeout time.Duration, logger *zap.Logger) *HeadClock {
	if fallback == nil {
		fallback = dex.SystemClock
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeadClock{headers: headers, fallback: fallback, timeout: timeout, logger: logger}
}

func (c *HeadClock) Now() uint64 {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var now uint64
	header, err := c.headers.HeaderByNumber(ctx, nil)
	if err != nil {
		now = c.fallback.Now()
		c.logger.Warn("chain head unavailable, using fallback clock", zap.Error(err), zap.Uint64("now", now))
	} else {
		now = header.Time
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if now < c.last {
		now = c.last
	}
	c.last = now
	return now
}
