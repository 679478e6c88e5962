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

// MetricsSnapshot aggregates counters for the ops status endpoint.
type MetricsSnapshot struct {
	RequestCount       uint64  `json:"request_count"`
	AvgRequestMillis   float64 `json:"avg_request_ms"`
	CacheHitRatio      float64 `json:"cache_hit_ratio"`
	ConflictChecks     uint64  `json:"conflict_checks"`
	ConflictsDetected  uint64  `json:"conflicts_detected"`
	SchedulesPersisted uint64  `json:"schedules_persisted"`
}

// MetricsService encapsulates Prometheus instrumentation for the API and the
// scheduling engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictChecks  *prometheus.CounterVec
	checkDuration   prometheus.Observer
	scheduleSaves   prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	checkCount           uint64
	conflictCount        uint64
	saveCount            uint64
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

	conflictChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflict_checks_total",
		Help: "Total placement conflict checks by outcome",
	}, []string{"outcome"})

	checkDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_conflict_check_seconds",
		Help:    "Duration of placement conflict checks",
		Buckets: prometheus.DefBuckets,
	})

	scheduleSaves := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_saves_total",
		Help: "Total schedules persisted",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conflict_context_cache_hits_total",
		Help: "Conflict context cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conflict_context_cache_misses_total",
		Help: "Conflict context cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, conflictChecks, checkDuration, scheduleSaves, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictChecks:  conflictChecks,
		checkDuration:   checkDuration,
		scheduleSaves:   scheduleSaves,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveConflictCheck records one placement validation and whether it found
// conflicts.
func (m *MetricsService) ObserveConflictCheck(conflicting bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "clean"
	if conflicting {
		outcome = "conflict"
		atomic.AddUint64(&m.conflictCount, 1)
	}
	m.conflictChecks.WithLabelValues(outcome).Inc()
	m.checkDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.checkCount, 1)
}

// ObserveScheduleSave counts one persisted schedule.
func (m *MetricsService) ObserveScheduleSave() {
	if m == nil {
		return
	}
	m.scheduleSaves.Inc()
	atomic.AddUint64(&m.saveCount, 1)
}

// RecordCacheLookup tracks conflict-context cache effectiveness.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
}

// Snapshot returns aggregated counters for the status endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	return MetricsSnapshot{
		RequestCount:       requests,
		AvgRequestMillis:   avgRequestMs,
		CacheHitRatio:      ratio,
		ConflictChecks:     atomic.LoadUint64(&m.checkCount),
		ConflictsDetected:  atomic.LoadUint64(&m.conflictCount),
		SchedulesPersisted: atomic.LoadUint64(&m.saveCount),
	}
}
