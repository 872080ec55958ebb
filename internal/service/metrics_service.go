package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes used as metric labels.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// MetricsService encapsulates Prometheus instrumentation for registry operations.
type MetricsService struct {
	registry    *prometheus.Registry
	handler     http.Handler
	operations  *prometheus.CounterVec
	faculties   prometheus.Gauge
	students    prometheus.Gauge
	alumni      prometheus.Gauge
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetricsService registers the registry collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_operations_total",
		Help: "Registry operations by name and outcome",
	}, []string{"operation", "outcome"})

	faculties := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registry_faculties",
		Help: "Faculties currently held in the registry",
	})

	students := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registry_students",
		Help: "Currently enrolled students across all faculties",
	})

	alumni := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registry_alumni",
		Help: "Graduated students across all faculties",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_cache_hits_total",
		Help: "Email lookups answered from the cache",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_cache_misses_total",
		Help: "Email lookups that fell through to a scan",
	})

	registry.MustRegister(operations, faculties, students, alumni, cacheHits, cacheMisses)

	return &MetricsService{
		registry:    registry,
		handler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		operations:  operations,
		faculties:   faculties,
		students:    students,
		alumni:      alumni,
		cacheHits:   cacheHits,
		cacheMisses: cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveOperation counts one registry operation.
func (m *MetricsService) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// SetRegistrySize publishes the current graph size.
func (m *MetricsService) SetRegistrySize(faculties, students, alumni int) {
	if m == nil {
		return
	}
	m.faculties.Set(float64(faculties))
	m.students.Set(float64(students))
	m.alumni.Set(float64(alumni))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}
