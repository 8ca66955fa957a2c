package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestResponseWriterCapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK) // second call ignored
	n, err := rw.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = (%d, %v), want (5, nil)", n, err)
	}

	if rw.statusCode != http.StatusTeapot {
		t.Fatalf("statusCode = %d, want 418", rw.statusCode)
	}
	if rw.bytesWritten != 5 {
		t.Fatalf("bytesWritten = %d, want 5", rw.bytesWritten)
	}
}

func TestLoggerPassesThrough(t *testing.T) {
	handler := Logger(DefaultLoggingConfig())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("response = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestMetricsPassesThrough(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSanitizeLogField(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a\nb\rc", "a b c"},
		{"nul\x00byte", "nulbyte"},
		{"esc\x1b[31mred", "esc[31mred"},
		{"tab\tok", "tab\tok"},
	}
	for _, tc := range cases {
		if got := sanitizeLogField(tc.in); got != tc.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestShouldSkipHealthChecks(t *testing.T) {
	cfg := DefaultLoggingConfig()
	if !shouldSkip("/healthz", cfg) {
		t.Fatal("health checks should be skipped by default")
	}
	if shouldSkip("/api/stats", cfg) {
		t.Fatal("API paths must not be skipped")
	}

	cfg.LogHealthChecks = true
	if shouldSkip("/healthz", cfg) {
		t.Fatal("LogHealthChecks=true must log probes")
	}
}

func TestClientIPPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Fatalf("clientIP = %q, want 10.0.0.1", got)
	}

	r.Header.Set("X-Real-IP", "10.0.0.2")
	if got := clientIP(r); got != "10.0.0.2" {
		t.Fatalf("clientIP = %q, want X-Real-IP value", got)
	}

	r.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	if got := clientIP(r); got != "10.0.0.3" {
		t.Fatalf("clientIP = %q, want first X-Forwarded-For hop", got)
	}
}

func TestIsStreamPath(t *testing.T) {
	cfg := DefaultMetricsConfig()
	if !isStreamPath("/stream.mjpeg", cfg) {
		t.Fatal("stream endpoint not recognized as long-lived")
	}
	if isStreamPath("/api/stats", cfg) {
		t.Fatal("stats endpoint misclassified as stream")
	}
}
