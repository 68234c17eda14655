package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and enrollment ledger activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	ledgerOps       *prometheus.CounterVec
	ledgerDuration  *prometheus.HistogramVec
	autoApprovals   prometheus.Counter
	bulkSkipped     *prometheus.CounterVec
	realtimeClients prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	ledgerOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crams_ledger_operations_total",
		Help: "Enrollment ledger operations by outcome",
	}, []string{"operation", "outcome"})

	ledgerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crams_ledger_operation_duration_seconds",
		Help:    "Duration of enrollment ledger transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	autoApprovals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crams_auto_approvals_total",
		Help: "Selections approved by capacity reconciliation",
	})

	bulkSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crams_bulk_review_skipped_total",
		Help: "Selections skipped during bulk review by reason code",
	}, []string{"code"})

	realtimeClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crams_realtime_connections",
		Help: "Open notification websocket connections",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		ledgerOps, ledgerDuration, autoApprovals, bulkSkipped, realtimeClients, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		ledgerOps:       ledgerOps,
		ledgerDuration:  ledgerDuration,
		autoApprovals:   autoApprovals,
		bulkSkipped:     bulkSkipped,
		realtimeClients: realtimeClients,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordLedgerOperation counts a ledger transaction and its duration.
func (m *MetricsService) RecordLedgerOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(operation, outcome).Inc()
	m.ledgerDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddAutoApprovals counts selections approved by capacity reconciliation.
func (m *MetricsService) AddAutoApprovals(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.autoApprovals.Add(float64(n))
}

// RecordBulkSkip counts a skipped bulk review item.
func (m *MetricsService) RecordBulkSkip(code string) {
	if m == nil {
		return
	}
	m.bulkSkipped.WithLabelValues(code).Inc()
}

// RealtimeConnected adjusts the open websocket gauge by delta.
func (m *MetricsService) RealtimeConnected(delta int) {
	if m == nil {
		return
	}
	m.realtimeClients.Add(float64(delta))
}
