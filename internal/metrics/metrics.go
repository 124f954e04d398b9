package metrics

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "dex"
	subsystem = "engine"
)

// Operation results used as label values.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
)

// Metrics holds the Prometheus collectors of the exchange engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Operations       *prometheus.CounterVec
	PoolsCreated     prometheus.Counter
	SwapVolume       *prometheus.CounterVec
	SwapFees         *prometheus.CounterVec
	LiquidityAdded   *prometheus.CounterVec
	LiquidityRemoved *prometheus.CounterVec
	PoolReserves     *prometheus.GaugeVec
	PoolTokenSupply  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Operations applied by the engine",
		}, []string{"op", "result"}),
		PoolsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pools_created_total",
			Help:      "Liquidity pools created",
		}),
		SwapVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "swap_volume_total",
			Help:      "Swap input volume in base units",
		}, []string{"pool", "asset"}),
		SwapFees: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "swap_fees_total",
			Help:      "Swap fees retained by pools in base units",
		}, []string{"pool", "asset"}),
		LiquidityAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "liquidity_added_total",
			Help:      "Liquidity deposited in base units",
		}, []string{"pool", "asset"}),
		LiquidityRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "liquidity_removed_total",
			Help:      "Liquidity withdrawn in base units",
		}, []string{"pool", "asset"}),
		PoolReserves: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pool_reserves",
			Help:      "Current pool reserves in base units",
		}, []string{"pool", "asset"}),
		PoolTokenSupply: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pool_token_supply",
			Help:      "Pool token total issuance",
		}, []string{"pool"}),
	}
}

func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultRejected
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) PoolCreated() {
	if m == nil {
		return
	}
	m.PoolsCreated.Inc()
}

func (m *Metrics) Swap(pool, assetIn string, amountIn, fee *uint256.Int) {
	if m == nil {
		return
	}
	m.SwapVolume.WithLabelValues(pool, assetIn).Add(toFloat(amountIn))
	m.SwapFees.WithLabelValues(pool, assetIn).Add(toFloat(fee))
}

func (m *Metrics) Deposit(pool, asset0, asset1 string, amount0, amount1 *uint256.Int) {
	if m == nil {
		return
	}
	m.LiquidityAdded.WithLabelValues(pool, asset0).Add(toFloat(amount0))
	m.LiquidityAdded.WithLabelValues(pool, asset1).Add(toFloat(amount1))
}

func (m *Metrics) Withdraw(pool, asset0, asset1 string, amount0, amount1 *uint256.Int) {
	if m == nil {
		return
	}
	m.LiquidityRemoved.WithLabelValues(pool, asset0).Add(toFloat(amount0))
	m.LiquidityRemoved.WithLabelValues(pool, asset1).Add(toFloat(amount1))
}

// PoolState records the reserves and supply after an operation.
func (m *Metrics) PoolState(pool, asset0, asset1 string, reserve0, reserve1, supply *uint256.Int) {
	if m == nil {
		return
	}
	m.PoolReserves.WithLabelValues(pool, asset0).Set(toFloat(reserve0))
	m.PoolReserves.WithLabelValues(pool, asset1).Set(toFloat(reserve1))
	m.PoolTokenSupply.WithLabelValues(pool).Set(toFloat(supply))
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
