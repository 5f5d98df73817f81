package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics Facade 的 prometheus 指标
type Metrics struct {
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	RPCCalls      *prometheus.CounterVec
	ThrottleWaits prometheus.Histogram
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时使用私有 registry，多个 Facade 之间互不冲突
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_core_ledger_cache_hits_total",
				Help: "Total number of ledger reads served from cache",
			},
			[]string{"kind"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_core_ledger_cache_misses_total",
				Help: "Total number of ledger reads that missed the cache",
			},
			[]string{"kind"},
		),
		RPCCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_core_ledger_rpc_calls_total",
				Help: "Total number of outbound ledger RPC calls",
			},
			[]string{"method", "status"},
		),
		ThrottleWaits: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wallet_core_ledger_throttle_wait_seconds",
				Help:    "Time spent waiting at the global throttle gate",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
			},
		),
	}
}
