// Package instrumentation exposes Prometheus metrics for the trading loop.
package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the bot publishes. Construct once with
// NewMetrics and share the instance.
type Metrics struct {
	EvaluationsTotal  *prometheus.CounterVec
	DecisionsTotal    *prometheus.CounterVec
	OrdersTotal       *prometheus.CounterVec
	RedemptionsTotal  *prometheus.CounterVec
	EvaluationSeconds prometheus.Histogram
	DailyPnLUSDC      prometheus.Gauge
	OpenPositions     prometheus.Gauge
}

// NewMetrics registers all collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lateshot",
			Name:      "evaluations_total",
			Help:      "Market evaluations performed, by asset.",
		}, []string{"asset"}),
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lateshot",
			Name:      "decisions_total",
			Help:      "Trade decisions, by direction (BUY_YES, BUY_NO, HOLD).",
		}, []string{"direction"}),
		OrdersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lateshot",
			Name:      "orders_total",
			Help:      "Orders placed, by terminal-or-current status.",
		}, []string{"status"}),
		RedemptionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lateshot",
			Name:      "redemptions_total",
			Help:      "Redemption outcomes, by result (success, retry).",
		}, []string{"result"}),
		EvaluationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lateshot",
			Name:      "evaluation_duration_seconds",
			Help:      "Latency of a full evaluation pass over all markets.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		DailyPnLUSDC: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "lateshot",
			Name:      "daily_pnl_usdc",
			Help:      "Realized PnL for the current daily window.",
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "lateshot",
			Name:      "open_positions",
			Help:      "Currently open positions.",
		}),
	}
}
