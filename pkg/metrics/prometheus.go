// Package metrics provides Prometheus metrics for debt-share scoring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds; RPC and indexer calls sit in the 10ms-10s range.
var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // constant-like

// Manager manages all Prometheus metrics for the strategy.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Invocation metrics
	invocations        prometheus.Counter
	invocationFailures prometheus.Counter
	invocationLatency  prometheus.Histogram
	scoredAddresses    prometheus.Gauge
	combinedDebtPool   prometheus.Gauge

	// Upstream metrics
	chainReadLatency  *prometheus.HistogramVec
	indexerLatency    *prometheus.HistogramVec
	holdersFetched    *prometheus.CounterVec
	ratesInvalid      *prometheus.CounterVec
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "debtshare",
		subsystem:        "strategy",
		histogramBuckets: defaultLatencyBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.invocations = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invocations_total",
		Help:        "Total number of strategy invocations",
		ConstLabels: m.constLabels,
	})

	m.invocationFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invocation_failures_total",
		Help:        "Total number of strategy invocations aborted by an upstream error",
		ConstLabels: m.constLabels,
	})

	m.invocationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invocation_latency_milliseconds",
		Help:        "End-to-end strategy invocation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.scoredAddresses = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scored_addresses",
		Help:        "Number of addresses in the last returned score map",
		ConstLabels: m.constLabels,
	})

	m.combinedDebtPool = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "combined_debt_pool",
		Help:        "Primary debt plus scaled secondary debt of the last invocation",
		ConstLabels: m.constLabels,
	})

	m.chainReadLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "chain_read_latency_milliseconds",
			Help:        "Latency of debt snapshot reads by chain",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"chain"},
	)

	m.indexerLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "indexer_latency_milliseconds",
			Help:        "Latency of holder list queries by chain",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"chain"},
	)

	m.holdersFetched = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "holders_fetched_total",
			Help:        "Total number of holder records returned by the indexer",
			ConstLabels: m.constLabels,
		},
		[]string{"chain"},
	)

	m.ratesInvalid = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "rates_invalid_total",
			Help:        "Debt reads where the debt cache flagged an invalid rate",
			ConstLabels: m.constLabels,
		},
		[]string{"chain"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: m.constLabels,
		},
		[]string{"component", "error_type"},
	)
}

// RecordInvocation increments the invocation counter.
func RecordInvocation() {
	globalManager.invocations.Inc()
}

// RecordInvocationFailure increments the failed invocation counter.
func RecordInvocationFailure() {
	globalManager.invocationFailures.Inc()
}

// RecordInvocationLatency records invocation latency in milliseconds.
func RecordInvocationLatency(latencyMs float64) {
	globalManager.invocationLatency.Observe(latencyMs)
}

// UpdateScoredAddresses sets the size of the last score map.
func UpdateScoredAddresses(count int) {
	globalManager.scoredAddresses.Set(float64(count))
}

// UpdateCombinedDebtPool sets the last combined debt pool.
func UpdateCombinedDebtPool(total float64) {
	globalManager.combinedDebtPool.Set(total)
}

// RecordChainReadLatency records a debt snapshot read for chain.
func RecordChainReadLatency(chain string, latencyMs float64) {
	globalManager.chainReadLatency.WithLabelValues(chain).Observe(latencyMs)
}

// RecordIndexerLatency records a holder list query for chain.
func RecordIndexerLatency(chain string, latencyMs float64) {
	globalManager.indexerLatency.WithLabelValues(chain).Observe(latencyMs)
}

// AddHoldersFetched adds count to the holders fetched for chain.
func AddHoldersFetched(chain string, count int) {
	globalManager.holdersFetched.WithLabelValues(chain).Add(float64(count))
}

// RecordRatesInvalid increments the invalid-rate counter for chain.
func RecordRatesInvalid(chain string) {
	globalManager.ratesInvalid.WithLabelValues(chain).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
