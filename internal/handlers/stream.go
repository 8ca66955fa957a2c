package handlers

import (
	"net/http"
	"time"

	"stream-compositor/internal/logging"
	"stream-compositor/internal/metrics"
	"stream-compositor/internal/streaming"
)

// StreamMJPEG delivers the composited output as a multipart MJPEG
// stream. Each client gets its own frame-signal subscription; if the
// client cannot keep up, intermediate frames are dropped rather than
// buffered (latest-frame-wins).
func (h *Handlers) StreamMJPEG(w http.ResponseWriter, r *http.Request) {
	strm := h.session.Stream()
	if !strm.Active() {
		writeJSONError(w, "stream is not active", http.StatusServiceUnavailable)
		return
	}

	// Capacity 1: a pending signal means "a newer frame exists", nothing
	// more, so dropping extra signals loses no information.
	frames := make(chan struct{}, 1)
	cancel := strm.Video().Subscribe(func(time.Duration) {
		select {
		case frames <- struct{}{}:
		default:
		}
	})
	defer cancel()

	metrics.StreamClientsConnected.Inc()
	defer metrics.StreamClientsConnected.Dec()

	w.Header().Set("Content-Type", streaming.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")

	mw := streaming.NewMJPEGWriter(r.Context(), w, streaming.DefaultConfig())
	defer func() {
		mw.LogCompletion()
		if err := mw.Close(); err != nil {
			logging.Warn("failed to close MJPEG writer: %v", err)
		}
	}()

	logging.Debug("MJPEG client connected: %s", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-frames:
			data, err := h.encoder.EncodeFrame(h.session.Snapshot())
			if err != nil {
				logging.Warn("frame encode failed, skipping: %v", err)
				continue
			}
			if err := mw.WriteFrame(data); err != nil {
				logging.Debug("MJPEG client done: %v", err)
				return
			}
		}
	}
}
