// Package metrics holds the console's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "churchadmin"

type collectors struct {
	mutations     *prometheus.CounterVec
	queryLookups  *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	reportExports *prometheus.CounterVec
	openForms     prometheus.Gauge
	sessions      prometheus.Gauge
}

var singleton = sync.OnceValue(func() *collectors {
	return &collectors{
		mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Backend mutations by entity kind, operation and outcome.",
		}, []string{"kind", "operation", "outcome"}),
		queryLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_lookups_total",
			Help:      "Query cache lookups by entity kind and result (hit, miss, shared).",
		}, []string{"kind", "result"}),
		invalidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_invalidations_total",
			Help:      "Query cache invalidations by entity kind.",
		}, []string{"kind"}),
		httpRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		reportExports: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_exports_total",
			Help:      "Report exports by entity kind, target and result.",
		}, []string{"kind", "target", "result"}),
		openForms: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_forms",
			Help:      "Form instances currently held by the server.",
		}),
		sessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live console sessions.",
		}),
	}
})

func RecordMutation(kind, operation, outcome string) {
	singleton().mutations.WithLabelValues(kind, operation, outcome).Inc()
}

// RecordQueryLookup counts a cache lookup. result is hit, miss or shared.
func RecordQueryLookup(kind, result string) {
	singleton().queryLookups.WithLabelValues(kind, result).Inc()
}

func RecordInvalidation(kind string) {
	singleton().invalidations.WithLabelValues(kind).Inc()
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c := singleton()
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordReportExport counts an export. target is xlsx or sheets.
func RecordReportExport(kind, target, result string) {
	singleton().reportExports.WithLabelValues(kind, target, result).Inc()
}

func SetOpenForms(n int) { singleton().openForms.Set(float64(n)) }

func SetSessions(n int) { singleton().sessions.Set(float64(n)) }

// Handler exposes the default registry.
func Handler() http.Handler {
	singleton()
	return promhttp.Handler()
}

// MutationCount reads a mutation counter, for tests and the dashboard.
func MutationCount(kind, operation, outcome string) float64 {
	return counterValue(singleton().mutations.WithLabelValues(kind, operation, outcome))
}

// InvalidationCount reads the invalidation counter of kind.
func InvalidationCount(kind string) float64 {
	return counterValue(singleton().invalidations.WithLabelValues(kind))
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
