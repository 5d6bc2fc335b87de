package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// occupancy sessions.
type Metrics struct {
	PollsTotal      *prometheus.CounterVec   // labels: lot, outcome={success,error}
	PollDuration    *prometheus.HistogramVec // labels: lot
	StaleDiscards   prometheus.Counter
	ActionsTotal    *prometheus.CounterVec // labels: action={submit_schedule,leaving_soon}, outcome={success,rejected,error}
	LocationsTotal  *prometheus.CounterVec // labels: outcome={success,permission_denied,unavailable,timeout,unsupported}
	SessionsActive  prometheus.Gauge
	FeedPublishes   *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all session metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollsTotal,
		m.PollDuration,
		m.StaleDiscards,
		m.ActionsTotal,
		m.LocationsTotal,
		m.SessionsActive,
		m.FeedPublishes,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lot_occupancy",
			Name:      "polls_total",
			Help:      "Completed poll cycles by lot and outcome.",
		}, []string{"lot", "outcome"}),
		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lot_occupancy",
			Name:      "poll_duration_seconds",
			Help:      "Duration of one upstream occupancy fetch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"lot"}),
		StaleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lot_occupancy",
			Name:      "stale_results_discarded_total",
			Help:      "In-flight results discarded because the session stopped first.",
		}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lot_occupancy",
			Name:      "actions_total",
			Help:      "Gated actions by operation and outcome.",
		}, []string{"action", "outcome"}),
		LocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lot_occupancy",
			Name:      "location_acquisitions_total",
			Help:      "Location acquisition attempts by outcome.",
		}, []string{"outcome"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lot_occupancy",
			Name:      "sessions_active",
			Help:      "Number of lot sessions currently polling.",
		}),
		FeedPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lot_occupancy",
			Name:      "feed_publishes_total",
			Help:      "Snapshot feed publishes by outcome.",
		}, []string{"outcome"}),
	}
}
