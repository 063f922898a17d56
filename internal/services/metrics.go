package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sparkcoin-backend/internal/session"
)

// MetricsInterface records sync pipeline outcomes.
type MetricsInterface interface {
	IncSyncs(result string)
	IncTransfers()
	ObserveCandidates(count int)
}

// Metrics is the Prometheus-backed implementation, registered on the
// default registry. Construct it once per process.
type Metrics struct {
	syncsTotal     *prometheus.CounterVec
	transfersTotal prometheus.Counter
	candidates     prometheus.Histogram
}

func NewMetrics(registry *session.Registry) MetricsInterface {
	m := &Metrics{
		syncsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkcoin_syncs_total",
			Help: "Total number of sync calls by outcome",
		}, []string{"result"}),

		transfersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sparkcoin_transfers_total",
			Help: "Total number of completed transfers",
		}),

		candidates: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sparkcoin_sync_candidates",
			Help:    "Number of candidate rows merged per sync",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sparkcoin_sessions_active",
		Help: "Sessions with activity within the exclusivity window",
	}, func() float64 {
		return float64(registry.Stats().Active)
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sparkcoin_sessions_total",
		Help: "All tracked sessions, including idle ones pending sweep",
	}, func() float64 {
		return float64(registry.Stats().Total)
	})

	return m
}

func (m *Metrics) IncSyncs(result string) {
	m.syncsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncTransfers() {
	m.transfersTotal.Inc()
}

func (m *Metrics) ObserveCandidates(count int) {
	m.candidates.Observe(float64(count))
}

// NoopMetrics is used in tests and when metrics are disabled.
type NoopMetrics struct{}

func (NoopMetrics) IncSyncs(_ string)       {}
func (NoopMetrics) IncTransfers()           {}
func (NoopMetrics) ObserveCandidates(_ int) {}
