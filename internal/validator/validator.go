package validator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"stream-compositor/internal/clock"
	"stream-compositor/internal/logging"
	"stream-compositor/internal/metrics"
	"stream-compositor/internal/stream"
	"stream-compositor/internal/surface"
)

// Validation failure tags. Rejections are synchronous (no timer started);
// timeout and aborted are terminal states of an in-flight validation.
var (
	ErrStreamInactive = errors.New("validator: stream inactive")
	ErrNoVideoTrack   = errors.New("validator: no video track")
	ErrNoAudioTrack   = errors.New("validator: no audio track")
	ErrVideoNotLive   = errors.New("validator: video track not live")
	ErrTimeout        = errors.New("validator: timeout")
	ErrAborted        = errors.New("validator: aborted")
)

// Options tunes one validation call.
type Options struct {
	// MinStableFrames is the number of distinct presentation timestamps
	// required to declare the stream stable.
	MinStableFrames int
	// Timeout bounds the whole validation.
	Timeout time.Duration
	// RequireAudio rejects streams without an audio track.
	RequireAudio bool
}

// DefaultOptions returns the standard validation tuning.
func DefaultOptions() Options {
	return Options{
		MinStableFrames: 5,
		Timeout:         3 * time.Second,
		RequireAudio:    true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinStableFrames <= 0 {
		o.MinStableFrames = d.MinStableFrames
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// Result reports the outcome of one validation call.
type Result struct {
	// Stable is true once MinStableFrames distinct timestamps were seen
	// within the timeout.
	Stable bool
	// FrameCount is the number of distinct timestamps observed.
	FrameCount int
	// Elapsed is the wall time the validation consumed.
	Elapsed time.Duration
	// Err carries the failure tag when Stable is false.
	Err error
}

// attempt tracks one in-flight validation so a newer call for the same
// stream identity can abort it. abortAt is written before abort is
// closed, so the superseded waiter reads the supersession time rather
// than its own wakeup time.
type attempt struct {
	abort   chan struct{}
	abortAt time.Time
}

// Validator confirms that an exposed stream is actually advancing before
// it is handed to a consumer. At most one validation is in flight per
// stream identity: a newer call supersedes and aborts the older one
// (last-writer-wins), which resolves as "aborted" rather than hanging.
type Validator struct {
	clk clock.Clock

	mu       sync.Mutex
	inflight map[uuid.UUID]*attempt
}

// New creates a Validator.
func New(clk clock.Clock) *Validator {
	return &Validator{
		clk:      clk,
		inflight: make(map[uuid.UUID]*attempt),
	}
}

// Validate blocks until the stream proves stable, the timeout elapses,
// the context is canceled, or a newer validation for the same stream
// supersedes this one. Run it in its own goroutine when non-blocking
// behavior is needed.
func (v *Validator) Validate(ctx context.Context, s *stream.Stream, opts Options) Result {
	opts = opts.withDefaults()
	start := v.clk.Now()

	// Synchronous short-circuits: no timer is started for these.
	if reject := v.precheck(s, opts); reject != nil {
		metrics.ValidationsTotal.WithLabelValues("rejected").Inc()
		logging.Debug("validator: rejected stream %s: %v", s.ID(), reject)
		return Result{Stable: false, Err: reject}
	}

	at := &attempt{abort: make(chan struct{})}
	v.mu.Lock()
	if prev, ok := v.inflight[s.ID()]; ok {
		prev.abortAt = v.clk.Now()
		close(prev.abort)
	}
	v.inflight[s.ID()] = at
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		if v.inflight[s.ID()] == at {
			delete(v.inflight, s.ID())
		}
		v.mu.Unlock()
	}()

	// Hidden playback sink: subscribe and count distinct presentation
	// timestamps. Each terminal event records its own timestamp before
	// closing its channel, so Elapsed reflects when the outcome was
	// decided, not when this goroutine was next scheduled.
	var (
		seenMu sync.Mutex
		seen   = make(map[time.Duration]struct{})
		okOnce sync.Once
		okCh   = make(chan struct{})
		okAt   time.Time
	)
	cancelSub := s.Video().Subscribe(func(pts time.Duration) {
		seenMu.Lock()
		seen[pts] = struct{}{}
		n := len(seen)
		seenMu.Unlock()
		if n >= opts.MinStableFrames {
			okOnce.Do(func() {
				okAt = v.clk.Now()
				close(okCh)
			})
		}
	})
	defer cancelSub()

	var timeoutAt time.Time
	timeoutCh := make(chan struct{})
	timer := v.clk.AfterFunc(opts.Timeout, func() {
		timeoutAt = v.clk.Now()
		close(timeoutCh)
	})
	defer timer.Stop()

	frameCount := func() int {
		seenMu.Lock()
		defer seenMu.Unlock()
		return len(seen)
	}

	var res Result
	var end time.Time
	select {
	case <-okCh:
		end = okAt
		res = Result{Stable: true, FrameCount: frameCount()}
		metrics.ValidationsTotal.WithLabelValues("stable").Inc()
	case <-timeoutCh:
		end = timeoutAt
		res = Result{Stable: false, FrameCount: frameCount(), Err: ErrTimeout}
		metrics.ValidationsTotal.WithLabelValues("timeout").Inc()
	case <-at.abort:
		end = at.abortAt
		res = Result{Stable: false, FrameCount: frameCount(), Err: ErrAborted}
		metrics.ValidationsTotal.WithLabelValues("aborted").Inc()
	case <-ctx.Done():
		end = v.clk.Now()
		res = Result{Stable: false, FrameCount: frameCount(), Err: ErrAborted}
		metrics.ValidationsTotal.WithLabelValues("aborted").Inc()
	}

	res.Elapsed = end.Sub(start)
	metrics.ValidationDuration.Observe(res.Elapsed.Seconds())
	logging.Debug("validator: stream %s -> stable=%v frames=%d elapsed=%v err=%v",
		s.ID(), res.Stable, res.FrameCount, res.Elapsed, res.Err)
	return res
}

// precheck returns the rejection tag for a stream that cannot possibly
// validate, or nil.
func (v *Validator) precheck(s *stream.Stream, opts Options) error {
	if !s.Active() {
		return ErrStreamInactive
	}
	if s.Video() == nil {
		return ErrNoVideoTrack
	}
	if opts.RequireAudio && s.Audio() == nil {
		return ErrNoAudioTrack
	}
	if s.Video().State() != stream.TrackLive {
		return ErrVideoNotLive
	}
	return nil
}

// WaitForCanvasStreamStability is the cheap pre-check: wait roughly two
// frame intervals (never less than 100ms), then confirm the surface has
// been painted at least once. The surface generation counter is used
// rather than a pixel sample, so a legitimately all-black frame still
// counts as painted.
func (v *Validator) WaitForCanvasStreamStability(ctx context.Context, surf *surface.Surface, fps int) bool {
	if fps <= 0 {
		fps = 30
	}
	wait := time.Duration(2*1000/fps) * time.Millisecond
	if wait < 100*time.Millisecond {
		wait = 100 * time.Millisecond
	}

	done := make(chan struct{})
	timer := v.clk.AfterFunc(wait, func() { close(done) })
	defer timer.Stop()

	select {
	case <-done:
	case <-ctx.Done():
		return false
	}

	return surf.Generation() > 0
}
