// Package metrics exposes Prometheus collectors for the scan engine.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the engine-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scanengine",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanengine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanengine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	scansStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanengine",
			Subsystem: "scans",
			Name:      "started_total",
			Help:      "Total number of scans started.",
		},
	)

	scansFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanengine",
			Subsystem: "scans",
			Name:      "finished_total",
			Help:      "Total number of scans reaching a terminal state.",
		},
		[]string{"status"},
	)

	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scanengine",
			Subsystem: "scans",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of scans.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
	)

	opportunitiesFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanengine",
			Subsystem: "scans",
			Name:      "opportunities_total",
			Help:      "Total opportunities emitted per strategy.",
		},
		[]string{"strategy"},
	)

	exchangeFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanengine",
			Subsystem: "exchange",
			Name:      "fetches_total",
			Help:      "Outcomes of exchange price fetches.",
		},
		[]string{"exchange", "outcome"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "scanengine",
			Subsystem: "exchange",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per exchange (0 closed, 1 open, 2 half-open).",
		},
		[]string{"exchange"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanengine",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Price cache lookup outcomes.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		scansStarted,
		scansFinished,
		scanDuration,
		opportunitiesFound,
		exchangeFetches,
		breakerState,
		cacheLookups,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordScanStarted counts a newly created scan session.
func RecordScanStarted() {
	scansStarted.Inc()
}

// RecordScanFinished counts a scan reaching a terminal state.
func RecordScanFinished(status string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	scansFinished.WithLabelValues(status).Inc()
	scanDuration.Observe(duration.Seconds())
}

// RecordOpportunities counts opportunities emitted by one strategy run.
func RecordOpportunities(strategy string, count int) {
	if count <= 0 {
		return
	}
	opportunitiesFound.WithLabelValues(strategy).Add(float64(count))
}

// RecordFetch counts one exchange fetch outcome.
func RecordFetch(exchange, outcome string) {
	exchangeFetches.WithLabelValues(exchange, outcome).Inc()
}

// SetBreakerState publishes the breaker state for an exchange.
func SetBreakerState(exchange string, state int) {
	breakerState.WithLabelValues(exchange).Set(float64(state))
}

// RecordCacheLookup counts a price cache lookup outcome: hit, stale or miss.
func RecordCacheLookup(outcome string) {
	cacheLookups.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "scans" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/scans"
	}
	if len(parts) == 2 {
		return "/scans/:scan_id"
	}
	return "/scans/:scan_id/" + parts[2]
}
