package metrics

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOp(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOp("swap", nil)
	m.ObserveOp("swap", nil)
	m.ObserveOp("swap", errors.New("boom"))

	if got := testutil.ToFloat64(m.Operations.WithLabelValues("swap", ResultOK)); got != 2 {
		t.Fatalf("ok count mismatch: %v", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("swap", ResultRejected)); got != 1 {
		t.Fatalf("rejected count mismatch: %v", got)
	}
}

func TestPoolState(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PoolState("4294967295", "1", "2", uint256.NewInt(10), uint256.NewInt(500), uint256.NewInt(10))
	m.Swap("4294967295", "1", uint256.NewInt(5), uint256.NewInt(0))

	if got := testutil.ToFloat64(m.PoolReserves.WithLabelValues("4294967295", "2")); got != 500 {
		t.Fatalf("reserve mismatch: %v", got)
	}
	if got := testutil.ToFloat64(m.SwapVolume.WithLabelValues("4294967295", "1")); got != 5 {
		t.Fatalf("volume mismatch: %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveOp("swap", nil)
	m.PoolCreated()
	m.Swap("p", "a", uint256.NewInt(1), uint256.NewInt(1))
	m.Deposit("p", "a", "b", uint256.NewInt(1), uint256.NewInt(1))
	m.Withdraw("p", "a", "b", uint256.NewInt(1), uint256.NewInt(1))
	m.PoolState("p", "a", "b", nil, nil, nil)
}
