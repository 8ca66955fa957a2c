package compositor

import (
	"sync/atomic"
	"time"

	"stream-compositor/internal/clock"
	"stream-compositor/internal/logging"
	"stream-compositor/internal/metrics"
	"stream-compositor/internal/source"
	"stream-compositor/internal/surface"
)

// DefaultCrossfadeDuration is the linear blend time between an outgoing
// and an incoming source.
const DefaultCrossfadeDuration = 200 * time.Millisecond

// FrameListener receives the presentation timestamp of every composited
// frame, after the surface has been fully drawn for that tick.
type FrameListener func(pts time.Duration)

// crossfade is the transient blend between two sources. At most one
// exists at a time; it is destroyed when the blend factor reaches 1.
type crossfade struct {
	outgoing source.Source
	incoming source.Source
	start    time.Time
	duration time.Duration
}

// Compositor owns the canonical output surface and blends the active
// source(s) into it every tick.
//
// The compositor performs no locking: all entry points must be serialized
// by the owner (the session's cooperative tick discipline), except
// SetPumpLabel, which the scheduler calls from its visibility path
// concurrently with ticks. Package tests drive it from a single
// goroutine.
type Compositor struct {
	clk          clock.Clock
	surf         *surface.Surface
	fadeDuration time.Duration
	epoch        time.Time

	active  source.Source
	pending source.Source
	fade    *crossfade

	onFrame FrameListener
	onStart func()       // fires once per registration; owner starts the pump
	pump    atomic.Value // tick metric label (string), set by the scheduler
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithCrossfadeDuration overrides the default 200ms source blend time.
func WithCrossfadeDuration(d time.Duration) Option {
	return func(c *Compositor) {
		if d > 0 {
			c.fadeDuration = d
		}
	}
}

// New creates a compositor over the given surface.
func New(surf *surface.Surface, clk clock.Clock, opts ...Option) *Compositor {
	c := &Compositor{
		clk:          clk,
		surf:         surf,
		fadeDuration: DefaultCrossfadeDuration,
		epoch:        clk.Now(),
	}
	c.pump.Store("foreground")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Surface returns the output surface the compositor draws into.
func (c *Compositor) Surface() *surface.Surface { return c.surf }

// SetFrameListener installs the consumer signal. Called before the pump
// starts.
func (c *Compositor) SetFrameListener(fn FrameListener) { c.onFrame = fn }

// SetStartHook installs the callback fired on source registration so the
// owner can start the pump if it is not already running.
func (c *Compositor) SetStartHook(fn func()) { c.onStart = fn }

// SetPumpLabel tags subsequent ticks for metrics. The scheduler flips it
// between "foreground", "background", and "kick", possibly concurrently
// with a tick in flight.
func (c *Compositor) SetPumpLabel(label string) { c.pump.Store(label) }

// ActiveSource returns the currently promoted source, or nil.
func (c *Compositor) ActiveSource() source.Source { return c.active }

// RegisterSource accepts a new pixel producer. If a source is already
// active the new one crossfades in once it becomes ready; otherwise it is
// queued as pending and polled every tick with no timeout.
func (c *Compositor) RegisterSource(s source.Source) {
	c.pending = s
	c.fade = nil
	logging.Info("compositor: registered %s source (hint=%s, ready=%v)",
		s.Kind(), s.Hint(), s.Ready())
	if c.onStart != nil {
		c.onStart()
	}
}

// Tick composites one frame: clears the surface, advances any crossfade,
// draws the current source(s), and signals consumers. In-tick draw
// failures are logged and skipped, never propagated.
func (c *Compositor) Tick() {
	metrics.CompositorTicksTotal.WithLabelValues(c.pump.Load().(string)).Inc()

	c.surf.Clear()

	if c.pending != nil && c.pending.Ready() {
		if c.active == nil {
			// First source: promote directly, nothing to fade from.
			c.active = c.pending
			c.pending = nil
		} else if c.fade == nil {
			c.fade = &crossfade{
				outgoing: c.active,
				incoming: c.pending,
				start:    c.clk.Now(),
				duration: c.fadeDuration,
			}
			metrics.CrossfadesStartedTotal.Inc()
			logging.Debug("compositor: crossfade started (%s -> %s over %v)",
				c.fade.outgoing.Kind(), c.fade.incoming.Kind(), c.fadeDuration)
		}
	}

	if f := c.fade; f != nil {
		t := float64(c.clk.Now().Sub(f.start)) / float64(f.duration)
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		c.blit(f.outgoing, 1-t)
		c.blit(f.incoming, t)
		if t >= 1 {
			c.active = f.incoming
			c.pending = nil
			c.fade = nil
			metrics.CrossfadesCompletedTotal.Inc()
			logging.Debug("compositor: crossfade complete, %s source active", c.active.Kind())
		}
	} else if c.active != nil && c.active.Ready() {
		c.blit(c.active, 1)
	}

	if c.onFrame != nil {
		c.onFrame(c.clk.Now().Sub(c.epoch))
	}
}

// Fading reports whether a crossfade is in progress.
func (c *Compositor) Fading() bool { return c.fade != nil }

// blit draws one source scaled-to-fit and centered at the given alpha.
// Failures — including panics from caller-supplied producers — skip the
// frame for that source only.
func (c *Compositor) blit(s source.Source, alpha float64) {
	if s == nil || alpha <= 0 || !s.Ready() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.CompositorDrawFailuresTotal.Inc()
			logging.Warn("compositor: source panicked during draw: %v", r)
		}
	}()
	img, err := s.Frame()
	if err != nil {
		metrics.CompositorDrawFailuresTotal.Inc()
		logging.Debug("compositor: frame unavailable: %v", err)
		return
	}
	if err := c.surf.Draw(img, alpha); err != nil {
		metrics.CompositorDrawFailuresTotal.Inc()
		logging.Debug("compositor: draw failed: %v", err)
	}
}
