package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"stream-compositor/internal/logging"
)

// responseWriter captures status code and bytes written for access logs.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush is required so the MJPEG writer can push parts through the wrap.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingConfig holds configuration for the access-log middleware.
type LoggingConfig struct {
	// SkipPaths are path prefixes that are never logged.
	SkipPaths []string
	// LogHealthChecks controls whether probe endpoints are logged.
	LogHealthChecks bool
}

// DefaultLoggingConfig skips probe endpoints; everything else is logged.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{LogHealthChecks: false}
}

var healthCheckPaths = map[string]bool{
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// sanitizeLogField strips characters that could forge or corrupt a log
// line: newlines become spaces, NUL/ESC and other control bytes (except
// tab) are dropped.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// Logger returns HTTP access-log middleware. The MJPEG endpoint is logged
// on completion like any other request; for long-lived streams that means
// one line per client session, carrying the total bytes delivered.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			logging.Info("%s %s %s %d %d %dms",
				sanitizeLogField(clientIP(r)),
				sanitizeLogField(r.Method),
				sanitizeLogField(r.URL.Path),
				wrapped.statusCode,
				wrapped.bytesWritten,
				time.Since(start).Milliseconds(),
			)
		})
	}
}

func shouldSkip(path string, config LoggingConfig) bool {
	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}
	for _, prefix := range config.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// clientIP prefers proxy headers (first X-Forwarded-For hop, then
// X-Real-IP) and falls back to the connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
