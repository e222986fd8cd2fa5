package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the pipeline stages. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	eventsIn         prometheus.Counter
	eventsOut        prometheus.Counter
	clustersFormed   prometheus.Counter
	classifyCalls    *prometheus.CounterVec
	classifyFailures *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	storeFailures    *prometheus.CounterVec
	batchDuration    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		eventsIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "citypulse_events_in_total",
			Help: "Raw events accepted into the pipeline.",
		}),
		eventsOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "citypulse_events_out_total",
			Help: "Canonical events produced by the pipeline.",
		}),
		clustersFormed: factory.NewCounter(prometheus.CounterOpts{
			Name: "citypulse_clusters_total",
			Help: "Clusters of size >= 2 formed during deduplication.",
		}),
		classifyCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citypulse_classify_calls_total",
			Help: "Classification calls issued, by task label.",
		}, []string{"task"}),
		classifyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citypulse_classify_failures_total",
			Help: "Classification calls that errored or timed out, by task label.",
		}, []string{"task"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citypulse_fallbacks_total",
			Help: "Deterministic fallbacks taken after a failed AI call, by stage.",
		}, []string{"stage"}),
		storeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citypulse_store_failures_total",
			Help: "Failed persistence writes, by store.",
		}, []string{"store"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "citypulse_batch_duration_seconds",
			Help:    "Wall time per processed batch.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *Metrics) batchObserved(in, out int, seconds float64) {
	if m == nil {
		return
	}
	m.eventsIn.Add(float64(in))
	m.eventsOut.Add(float64(out))
	m.batchDuration.Observe(seconds)
}

func (m *Metrics) clusterFormed() {
	if m == nil {
		return
	}
	m.clustersFormed.Inc()
}

func (m *Metrics) classifyCalled(task string) {
	if m == nil {
		return
	}
	m.classifyCalls.WithLabelValues(task).Inc()
}

func (m *Metrics) classifyFailed(task string) {
	if m == nil {
		return
	}
	m.classifyFailures.WithLabelValues(task).Inc()
}

func (m *Metrics) fallbackUsed(stage string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(stage).Inc()
}

func (m *Metrics) storeFailed(store string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(store).Inc()
}
