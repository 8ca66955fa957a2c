package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"stream-compositor/internal/metrics"
)

// metricsResponseWriter captures the status code for labeling.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsConfig holds configuration for the metrics middleware.
type MetricsConfig struct {
	// SkipPaths are path prefixes that should not be recorded.
	SkipPaths []string
	// StreamPaths are long-lived endpoints: counted, but excluded from
	// the duration histogram so hour-long MJPEG sessions don't drown it.
	StreamPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths:   []string{"/metrics", "/healthz", "/livez", "/readyz"},
		StreamPaths: []string{"/stream"},
	}
}

// Metrics returns a middleware that records Prometheus metrics.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			status := strconv.Itoa(wrapped.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()

			if !isStreamPath(path, config) {
				metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).
					Observe(time.Since(start).Seconds())
			}
		})
	}
}

func isStreamPath(path string, config MetricsConfig) bool {
	for _, p := range config.StreamPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
