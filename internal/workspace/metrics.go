package workspace

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors updated by a Workspace.
type Metrics struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	mutations     *prometheus.CounterVec
	generation    prometheus.Gauge
	attributions  *prometheus.GaugeVec
	staleSignals  prometheus.Counter
}

// NewMetrics registers the workspace collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "licaudit_queries_total",
			Help: "Engine queries by operation and result",
		}, []string{"operation", "result"}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "licaudit_query_duration_seconds",
			Help:    "Engine query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}, []string{"operation"}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "licaudit_mutations_total",
			Help: "Attribution mutations by operation and result",
		}, []string{"operation", "result"}),
		generation: factory.NewGauge(prometheus.GaugeOpts{
			Name: "licaudit_snapshot_generation",
			Help: "Generation of the current snapshot",
		}),
		attributions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "licaudit_attributions",
			Help: "Attributions in the current snapshot by kind",
		}, []string{"kind"}),
		staleSignals: factory.NewCounter(prometheus.CounterOpts{
			Name: "licaudit_signals_stale_total",
			Help: "Autocomplete computations discarded because a newer resource was selected",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// observe records one query; use as defer m.observe("op", time.Now(), &err).
func (m *Metrics) observe(op string, start time.Time, err *error) {
	m.queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.queries.WithLabelValues(op, result(*err)).Inc()
}

func (m *Metrics) mutation(op string, err error) {
	m.mutations.WithLabelValues(op, result(err)).Inc()
}
