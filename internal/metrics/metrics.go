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
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skywindow_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_constraint_evaluations_total",
			Help: "Constraint evaluations by kind, mode and outcome.",
		},
		[]string{"kind", "mode", "outcome"},
	)

	evaluationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skywindow_constraint_evaluation_seconds",
			Help:    "Constraint evaluation duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"kind", "mode"},
	)

	windowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_violation_windows_total",
			Help: "Violation windows emitted by single-target evaluations.",
		},
		[]string{"kind"},
	)

	batchTargetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_batch_targets_total",
			Help: "Targets evaluated through the batch path.",
		},
		[]string{"kind"},
	)

	propagationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skywindow_propagation_seconds",
			Help:    "SGP4 series propagation duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 9),
		},
	)

	propagatedSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_propagated_samples_total",
			Help: "Ephemeris samples propagated, by outcome.",
		},
		[]string{"outcome"},
	)

	catalogSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skywindow_catalog_satellites",
			Help: "Entries in the loaded TLE catalog.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skywindow_catalog_age_seconds",
			Help: "Seconds since the TLE catalog was loaded.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		evaluationsTotal,
		evaluationSeconds,
		windowsTotal,
		batchTargetsTotal,
		propagationSeconds,
		propagatedSamplesTotal,
		catalogSatellites,
		catalogAgeSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordEvaluation records one single-target evaluation.
func RecordEvaluation(kind string, d time.Duration, windows int, err error) {
	evaluationsTotal.WithLabelValues(kind, "single", outcome(err)).Inc()
	evaluationSeconds.WithLabelValues(kind, "single").Observe(d.Seconds())
	if err == nil {
		windowsTotal.WithLabelValues(kind).Add(float64(windows))
	}
}

// RecordBatch records one batch evaluation over targets.
func RecordBatch(kind string, d time.Duration, targets int, err error) {
	evaluationsTotal.WithLabelValues(kind, "batch", outcome(err)).Inc()
	evaluationSeconds.WithLabelValues(kind, "batch").Observe(d.Seconds())
	if err == nil {
		batchTargetsTotal.WithLabelValues(kind).Add(float64(targets))
	}
}

// RecordPropagation records one series propagation.
func RecordPropagation(d time.Duration, samples int, err error) {
	propagationSeconds.Observe(d.Seconds())
	propagatedSamplesTotal.WithLabelValues(outcome(err)).Add(float64(samples))
}

// SetCatalog records the size of a newly loaded catalog.
func SetCatalog(satellites int) {
	catalogSatellites.Set(float64(satellites))
	catalogAgeSeconds.Set(0)
}

// SetCatalogAge updates the catalog age gauge.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

var exactRoutes = map[string]bool{
	"/":                      true,
	"/healthz":               true,
	"/readyz":                true,
	"/metrics":               true,
	"/api/v1/constraints":    true,
	"/api/v1/evaluate":       true,
	"/api/v1/evaluate/batch": true,
	"/api/v1/catalog":        true,
}

const catalogPrefix = "/api/v1/catalog/"

// normalizeRoute maps a request path onto a bounded label set: known routes
// keep their path, per-satellite paths collapse to a template, everything
// else is "other".
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}
	if id, ok := strings.CutPrefix(path, catalogPrefix); ok {
		if _, err := strconv.Atoi(id); err == nil {
			return catalogPrefix + "{norad_id}"
		}
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
