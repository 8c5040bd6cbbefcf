package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the provider subsystem.
type Metrics struct {
	config MetricsConfig

	// Provider initialization metrics
	providerInits        *prometheus.CounterVec
	providerInitDuration *prometheus.HistogramVec

	// Status cache metrics
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheRefreshes *prometheus.CounterVec

	// PreInit script metrics
	preInitRuns     *prometheus.CounterVec
	preInitDuration *prometheus.HistogramVec

	// Policy metrics
	policyEvaluations *prometheus.CounterVec
	policyViolations  *prometheus.CounterVec

	// Graph metrics
	graphDepth      prometheus.Gauge
	activeProviders prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		providerInits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_inits_total",
				Help:      "Total number of provider initializations",
			},
			[]string{"provider", "state"},
		),
		providerInitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_init_duration_seconds",
				Help:      "Duration of provider initialization in seconds",
				Buckets:   buckets,
			},
			[]string{"provider"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_cache_hits_total",
				Help:      "Total number of provider status cache hits",
			},
			[]string{"provider"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_cache_misses_total",
				Help:      "Total number of provider status cache misses",
			},
			[]string{"provider"},
		),
		cacheRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_cache_refreshes_total",
				Help:      "Total number of forced provider status refreshes",
			},
			[]string{"provider"},
		),
		preInitRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preinit_runs_total",
				Help:      "Total number of preInit script runs",
			},
			[]string{"provider", "result"},
		),
		preInitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "preinit_duration_seconds",
				Help:      "Duration of preInit script runs in seconds",
				Buckets:   buckets,
			},
			[]string{"provider"},
		),
		policyEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_evaluations_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"namespace"},
		),
		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of policy violations found",
			},
			[]string{"namespace", "severity"},
		),
		graphDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_graph_depth",
				Help:      "Depth of the resolved provider graph",
			},
		),
		activeProviders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_providers",
				Help:      "Number of providers active in the current environment",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.providerInits, m.providerInitDuration,
		m.cacheHits, m.cacheMisses, m.cacheRefreshes,
		m.preInitRuns, m.preInitDuration,
		m.policyEvaluations, m.policyViolations,
		m.graphDepth, m.activeProviders,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// RecordProviderInit records a provider initialization outcome.
func (m *Metrics) RecordProviderInit(provider, state string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.providerInits.WithLabelValues(provider, state).Inc()
	m.providerInitDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordCacheHit records a status cache hit.
func (m *Metrics) RecordCacheHit(provider string) {
	if m.registry == nil {
		return
	}
	m.cacheHits.WithLabelValues(provider).Inc()
}

// RecordCacheMiss records a status cache miss.
func (m *Metrics) RecordCacheMiss(provider string) {
	if m.registry == nil {
		return
	}
	m.cacheMisses.WithLabelValues(provider).Inc()
}

// RecordCacheRefresh records a forced status refresh.
func (m *Metrics) RecordCacheRefresh(provider string) {
	if m.registry == nil {
		return
	}
	m.cacheRefreshes.WithLabelValues(provider).Inc()
}

// RecordPreInit records a preInit script run.
func (m *Metrics) RecordPreInit(provider, result string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.preInitRuns.WithLabelValues(provider, result).Inc()
	m.preInitDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordPolicyEvaluation records a policy evaluation with its violations.
func (m *Metrics) RecordPolicyEvaluation(namespace string, violations map[string]int) {
	if m.registry == nil {
		return
	}
	m.policyEvaluations.WithLabelValues(namespace).Inc()
	for severity, count := range violations {
		m.policyViolations.WithLabelValues(namespace, severity).Add(float64(count))
	}
}

// SetGraphStats records the resolved graph's shape.
func (m *Metrics) SetGraphStats(depth, active int) {
	if m.registry == nil {
		return
	}
	m.graphDepth.Set(float64(depth))
	m.activeProviders.Set(float64(active))
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing the metrics endpoint.
// It blocks until the server stops.
func (m *Metrics) Serve() error {
	if m.registry == nil {
		return nil
	}
	mux := http.NewServeMux()
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, m.Handler())
	return http.ListenAndServe(m.config.ListenAddress, mux)
}
