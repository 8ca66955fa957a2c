package handlers

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stream-compositor/internal/clock"
	"stream-compositor/internal/session"
	"stream-compositor/internal/source"
	"stream-compositor/internal/startup"
)

type flatCanvas struct {
	w, h int
	c    color.RGBA
}

func (fc *flatCanvas) Width() int  { return fc.w }
func (fc *flatCanvas) Height() int { return fc.h }
func (fc *flatCanvas) Image() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, fc.w, fc.h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = fc.c.R
		img.Pix[i+1] = fc.c.G
		img.Pix[i+2] = fc.c.B
		img.Pix[i+3] = fc.c.A
	}
	return img
}

func newTestHandlers(t *testing.T) (*Handlers, *session.Session, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual()
	sess, err := session.New(session.Config{Width: 32, Height: 32, Clock: clk})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(sess.Shutdown)

	cfg := &startup.Config{
		Port:           "8080",
		MetricsEnabled: true,
		JPEGQuality:    80,
	}
	return New(sess, nil, cfg), sess, clk
}

func produceFrames(t *testing.T, sess *session.Session, clk *clock.Manual) {
	t.Helper()
	sess.RegisterSource(source.NewCanvasSource(&flatCanvas{w: 32, h: 32, c: color.RGBA{R: 64, G: 128, B: 32, A: 255}}, source.HintNone))
	clk.Advance(100 * time.Millisecond)
	if sess.Stream().Video().FrameCount() == 0 {
		t.Fatal("no frames produced for test fixture")
	}
}

func TestHealthCheckBeforeAndAfterFrames(t *testing.T) {
	h, sess, clk := newTestHandlers(t)
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("pre-frame health status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("health body: %v", err)
	}
	if resp.Status != statusStarting || resp.Ready {
		t.Fatalf("pre-frame health = %+v, want starting/not-ready", resp)
	}

	produceFrames(t, sess, clk)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("post-frame health status = %d, want 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("health body: %v", err)
	}
	if resp.Status != statusHealthy || resp.FrameCount == 0 {
		t.Fatalf("post-frame health = %+v, want healthy with frames", resp)
	}
}

func TestReadinessTracksFrameProduction(t *testing.T) {
	h, sess, clk := newTestHandlers(t)
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readiness before frames = %d, want 503", rec.Code)
	}

	produceFrames(t, sess, clk)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readiness after frames = %d, want 200", rec.Code)
	}
}

func TestLivenessCheck(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "alive") {
		t.Fatalf("liveness = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/livez", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("HEAD liveness = %d with %d body bytes, want 200 and empty", rec.Code, rec.Body.Len())
	}
}

func TestGetVersion(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("version status = %d", rec.Code)
	}

	var info startup.BuildInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("version body: %v", err)
	}
	if info.Version == "" || info.GoVersion == "" {
		t.Fatalf("incomplete build info: %+v", info)
	}
}

func TestGetStatsWithoutStore(t *testing.T) {
	h, sess, clk := newTestHandlers(t)
	produceFrames(t, sess, clk)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}

	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("stats body: %v", err)
	}
	if resp.SessionID != sess.ID().String() {
		t.Fatalf("sessionId = %q, want %q", resp.SessionID, sess.ID())
	}
	if !resp.StreamActive || resp.FrameCount == 0 {
		t.Fatalf("stats = %+v, want active stream with frames", resp)
	}
	if resp.Validations != nil {
		t.Fatal("validation history present without a store")
	}
}

func TestSetVisibility(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/visibility",
		strings.NewReader(`{"visible": false}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("visibility status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/visibility",
		strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid visibility body status = %d, want 400", rec.Code)
	}
}

func TestStreamRejectsClosedSession(t *testing.T) {
	h, sess, _ := newTestHandlers(t)
	sess.Shutdown()

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream.mjpeg", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("stream on closed session = %d, want 503", rec.Code)
	}
}

func TestStreamDeliversFrames(t *testing.T) {
	h, sess, clk := newTestHandlers(t)
	produceFrames(t, sess, clk)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream.mjpeg", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Router().ServeHTTP(rec, req)
		close(done)
	}()

	// Pump frames until the handler has had a chance to subscribe and
	// deliver at least one part, then disconnect the client.
	for i := 0; i < 100; i++ {
		clk.Advance(20 * time.Millisecond)
		time.Sleep(2 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream handler did not return after client disconnect")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "Content-Type: image/jpeg") {
		t.Fatal("no JPEG part delivered")
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "multipart/x-mixed-replace") {
		t.Fatalf("stream content type = %q", got)
	}
}

func TestMetricsEndpointRegistered(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "stream_compositor_") {
		t.Fatal("metrics output missing application series")
	}
}
