package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"stream-compositor/internal/clock"
	"stream-compositor/internal/complexity"
	"stream-compositor/internal/compositor"
	"stream-compositor/internal/logging"
	"stream-compositor/internal/scheduler"
	"stream-compositor/internal/source"
	"stream-compositor/internal/stream"
	"stream-compositor/internal/surface"
	"stream-compositor/internal/validator"
)

// ErrNoDrawingContext indicates the output surface could not be created.
// Fatal: the session never initializes.
var ErrNoDrawingContext = errors.New("session: no drawing context")

// retryBackoff is the fixed delay before the single validation retry.
const retryBackoff = 1000 * time.Millisecond

// Recorder persists session diagnostics. Optional; nil disables it.
type Recorder interface {
	RecordValidation(sessionID string, attempt int, r validator.Result)
	RecordComplexitySample(sessionID string, m complexity.Metrics, smoothed float64)
}

// Config carries the recognized session options.
type Config struct {
	// Width and Height fix the output surface size. Default 512×512.
	Width  int
	Height int
	// FPS is the nominal output rate and the background pump period.
	FPS int
	// CrossfadeDuration overrides the 200ms source blend time.
	CrossfadeDuration time.Duration

	// EnableComplexityManagement turns on encoder-stability control
	// while the page is hidden.
	EnableComplexityManagement bool
	// ComplexityOptions tunes the controller when enabled.
	ComplexityOptions complexity.Config

	// OnBackgroundFrame is invoked once per background pump tick.
	OnBackgroundFrame func()

	// Clock defaults to the system clock; tests inject a manual one.
	Clock clock.Clock
	// Audio defaults to the near-silent synthesizer.
	Audio stream.SyntheticAudioProvider
	// Recorder persists validation and complexity diagnostics.
	Recorder Recorder
}

// withDefaults fills unset options. Invalid values (negative dimensions)
// are passed through so surface.New can reject them.
func (c Config) withDefaults() Config {
	if c.Width == 0 {
		c.Width = surface.DefaultSize
	}
	if c.Height == 0 {
		c.Height = surface.DefaultSize
	}
	if c.FPS <= 0 {
		c.FPS = scheduler.DefaultFPS
	}
	if c.Clock == nil {
		c.Clock = clock.System()
	}
	if c.Audio == nil {
		c.Audio = stream.NewNearSilentAudio()
	}
	return c
}

// Session is a caller-owned compositing orchestrator with an explicit
// init/shutdown lifecycle. Multiple sessions are fully independent; there
// is no shared static state.
type Session struct {
	id  uuid.UUID
	cfg Config
	clk clock.Clock

	// mu serializes every surface mutation: compositor ticks,
	// complexity injection, and source registration all run under it,
	// preserving the composite → analyze/inject → signal order per
	// observable frame.
	mu sync.Mutex

	surf  *surface.Surface
	comp  *compositor.Compositor
	ctrl  *complexity.Controller
	sched *scheduler.Scheduler
	val   *validator.Validator
	strm  *stream.Stream

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// New constructs a session. The only fatal failure is an unobtainable
// drawing surface.
func New(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	surf, err := surface.New(cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDrawingContext, err)
	}

	s := &Session{
		id:   uuid.New(),
		cfg:  cfg,
		clk:  cfg.Clock,
		surf: surf,
		done: make(chan struct{}),
	}

	var compOpts []compositor.Option
	if cfg.CrossfadeDuration > 0 {
		compOpts = append(compOpts, compositor.WithCrossfadeDuration(cfg.CrossfadeDuration))
	}
	s.comp = compositor.New(surf, cfg.Clock, compOpts...)
	s.ctrl = complexity.New(cfg.Clock)
	s.val = validator.New(cfg.Clock)
	s.strm = stream.New(stream.NewVideoTrack(surf, cfg.FPS), stream.NewAudioTrack(cfg.Audio))

	// Per-tick order: composite, perturb, then signal. The controller runs
	// between the compositor's draw and the frame signal so consumers only
	// ever observe fully composited, complexity-adjusted pixels.
	s.comp.SetFrameListener(func(pts time.Duration) {
		s.ctrl.Tick()
		s.strm.Video().SignalFrame(pts)
	})

	s.sched = scheduler.New(scheduler.Config{
		Clock:              cfg.Clock,
		FPS:                cfg.FPS,
		Tick:               s.tick,
		OnBackgroundFrame:  cfg.OnBackgroundFrame,
		OnHidden:           s.onHidden,
		OnVisible:          s.onVisible,
		ResumePausedSource: s.resumePaused,
		SetPumpLabel:       s.comp.SetPumpLabel,
	})
	s.comp.SetStartHook(s.sched.Start)

	logging.Info("session %s: initialized (%dx%d @ %d fps, complexity=%v)",
		s.id, cfg.Width, cfg.Height, cfg.FPS, cfg.EnableComplexityManagement)
	return s, nil
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Stream returns the session's output stream. The stream exists from
// construction; DeliverStream gates the hand-over on stability.
func (s *Session) Stream() *stream.Stream { return s.strm }

// Surface exposes the output surface for read-only consumers (encoders).
func (s *Session) Surface() *surface.Surface { return s.surf }

// Controller exposes the complexity controller for diagnostics.
func (s *Session) Controller() *complexity.Controller { return s.ctrl }

// Snapshot copies the current frame under the session lock, so encoders
// never observe a half-composited surface.
func (s *Session) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surf.Snapshot()
}

// RegisterSource feeds a new pixel producer to the compositor and starts
// the pump if it is not already running. The caller keeps ownership of
// the producer.
func (s *Session) RegisterSource(src source.Source) {
	if s.closed.Load() {
		logging.Warn("session %s: RegisterSource after shutdown ignored", s.id)
		return
	}
	s.mu.Lock()
	s.comp.RegisterSource(src)
	s.mu.Unlock()
}

// SetVisible informs the session of a page visibility change.
func (s *Session) SetVisible(visible bool) {
	if s.closed.Load() {
		return
	}
	s.sched.SetVisible(visible)
}

// DeliverStream validates the stream and invokes onReady with it. The
// callback fires once validation reports stability, or — after exactly
// one retry with a fixed 1000ms backoff — with the stream anyway:
// availability is favored over a strict stability guarantee. A
// superseded (aborted) validation never fires the callback; the
// superseding call will.
func (s *Session) DeliverStream(ctx context.Context, onReady func(*stream.Stream, validator.Result)) {
	go func() {
		opts := validator.DefaultOptions()
		res := s.val.Validate(ctx, s.strm, opts)
		s.record(1, res)
		if errors.Is(res.Err, validator.ErrAborted) {
			return
		}

		if !res.Stable {
			logging.Warn("session %s: stream validation failed (%v), retrying in %v",
				s.id, res.Err, retryBackoff)
			if !s.sleep(ctx, retryBackoff) {
				return
			}
			res = s.val.Validate(ctx, s.strm, opts)
			s.record(2, res)
			if errors.Is(res.Err, validator.ErrAborted) {
				return
			}
			if !res.Stable {
				logging.Warn("session %s: stream still unstable after retry, handing over anyway", s.id)
			}
		}

		onReady(s.strm, res)
	}()
}

// sleep blocks for d on the session clock. Returns false when the
// context or the session ended first.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	ch := make(chan struct{})
	timer := s.clk.AfterFunc(d, func() { close(ch) })
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

// Shutdown transitively stops the scheduler, monitoring, and stream
// tracks. Idempotent and safe to call from within a frame callback.
func (s *Session) Shutdown() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.sched.Stop()
		s.ctrl.StopMonitoring()
		s.strm.Close()
		logging.Info("session %s: shut down", s.id)
	})
}

// tick produces one frame under the session lock.
func (s *Session) tick() {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comp.Tick()
}

func (s *Session) onHidden() {
	if !s.cfg.EnableComplexityManagement || s.closed.Load() {
		return
	}
	s.ctrl.StartMonitoring(s.surf, s.cfg.ComplexityOptions)
}

func (s *Session) onVisible() {
	s.ctrl.StopMonitoring()
	if s.cfg.Recorder != nil {
		if h := s.ctrl.History(); len(h) > 0 {
			s.cfg.Recorder.RecordComplexitySample(s.id.String(), h[len(h)-1], s.ctrl.SmoothedOverall())
		}
	}
}

// resumePaused restarts a video source that paused while hidden.
func (s *Session) resumePaused() {
	s.mu.Lock()
	active := s.comp.ActiveSource()
	s.mu.Unlock()

	vs, ok := active.(*source.VideoSource)
	if !ok {
		return
	}
	p, ok := vs.Underlying().(source.Pausable)
	if !ok || !p.Paused() {
		return
	}
	if err := p.Resume(); err != nil {
		logging.Warn("session %s: failed to resume paused video: %v", s.id, err)
	}
}

func (s *Session) record(attempt int, r validator.Result) {
	if s.cfg.Recorder == nil {
		return
	}
	s.cfg.Recorder.RecordValidation(s.id.String(), attempt, r)
}
