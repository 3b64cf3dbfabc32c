package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics records settlement transition activity.
type MarketMetrics struct {
	transitions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var (
	marketMetricsOnce sync.Once
	marketRegistry    *MarketMetrics
)

// Market returns the lazily-initialised metrics registry used to record
// settlement transitions.
func Market() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketd",
				Subsystem: "engine",
				Name:      "transitions_total",
				Help:      "Total settlement transitions segmented by action and outcome.",
			}, []string{"action", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "marketd",
				Subsystem: "engine",
				Name:      "transition_duration_seconds",
				Help:      "Latency distribution for settlement transitions.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
		}
		prometheus.MustRegister(marketRegistry.transitions, marketRegistry.latency)
	})
	return marketRegistry
}

// Observe records one transition attempt.
func (m *MarketMetrics) Observe(action, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(elapsed.Seconds())
}
