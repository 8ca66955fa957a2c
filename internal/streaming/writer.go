package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"stream-compositor/internal/logging"
)

// Boundary separates parts of the multipart MJPEG response.
const Boundary = "compositorframe"

// ContentType is the response content type for the MJPEG endpoint.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a frame write exceeded the configured
	// timeout. This typically means the client is receiving too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the
	// stream completed, detected via request context cancellation.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates the stream was canceled programmatically.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config tunes the MJPEG writer behavior.
type Config struct {
	// WriteTimeout is the maximum time to wait for a single frame write.
	WriteTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited).
	MaxDuration time.Duration
	// OnProgress is called after each delivered frame.
	OnProgress func(frames, bytesWritten int64)
}

// DefaultConfig returns sensible defaults for interactive clients.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		MaxDuration:  0,
	}
}

// MJPEGWriter delivers encoded frames as a multipart/x-mixed-replace
// stream with per-write timeout protection, so one stalled client can
// never pin a delivery goroutine forever.
type MJPEGWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config

	mu           sync.Mutex
	closed       bool
	startTime    time.Time
	frames       int64
	bytesWritten int64
}

// NewMJPEGWriter wraps an HTTP response for frame delivery. The caller
// is responsible for setting response headers before the first frame.
func NewMJPEGWriter(ctx context.Context, w http.ResponseWriter, config Config) *MJPEGWriter {
	writerCtx, cancel := context.WithCancel(ctx)

	mw := &MJPEGWriter{
		w:         w,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
	}
	if flusher, ok := w.(http.Flusher); ok {
		mw.flusher = flusher
	}
	return mw
}

// WriteFrame delivers one encoded JPEG frame as a multipart part.
func (mw *MJPEGWriter) WriteFrame(data []byte) error {
	mw.mu.Lock()
	if mw.closed {
		mw.mu.Unlock()
		return ErrStreamCanceled
	}
	mw.mu.Unlock()

	select {
	case <-mw.ctx.Done():
		return mw.contextError()
	default:
	}

	if mw.config.MaxDuration > 0 && time.Since(mw.startTime) > mw.config.MaxDuration {
		return ErrWriteTimeout
	}

	header := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
		Boundary, len(data))

	n, err := mw.writeWithTimeout(append([]byte(header), data...))
	if err != nil {
		return err
	}

	mw.mu.Lock()
	mw.frames++
	mw.bytesWritten += int64(n)
	frames, bytesWritten := mw.frames, mw.bytesWritten
	mw.mu.Unlock()

	if mw.flusher != nil {
		mw.flusher.Flush()
	}
	if mw.config.OnProgress != nil {
		mw.config.OnProgress(frames, bytesWritten)
	}
	return nil
}

// writeWithTimeout performs a single write bounded by WriteTimeout.
func (mw *MJPEGWriter) writeWithTimeout(p []byte) (int, error) {
	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := mw.w.Write(p)
		resultCh <- writeResult{n, err}
	}()

	timeout := mw.config.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().WriteTimeout
	}

	select {
	case result := <-resultCh:
		return result.n, result.err

	case <-time.After(timeout):
		mw.cancel()
		return 0, ErrWriteTimeout

	case <-mw.ctx.Done():
		return 0, mw.contextError()
	}
}

// contextError returns an appropriate error based on context state.
func (mw *MJPEGWriter) contextError() error {
	if mw.ctx.Err() == context.Canceled {
		return ErrClientGone
	}
	return ErrStreamCanceled
}

// Close marks the writer as closed. Idempotent.
func (mw *MJPEGWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.closed {
		return nil
	}
	mw.closed = true
	mw.cancel()
	return nil
}

// Stats returns delivery statistics.
func (mw *MJPEGWriter) Stats() (frames, bytesWritten int64, duration time.Duration) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.frames, mw.bytesWritten, time.Since(mw.startTime)
}

// LogCompletion records the end-of-stream summary at debug level.
func (mw *MJPEGWriter) LogCompletion() {
	frames, bytesWritten, duration := mw.Stats()
	logging.Debug("Stream completed: %d frames, %d bytes in %v", frames, bytesWritten, duration)
}
