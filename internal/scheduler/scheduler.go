package scheduler

import (
	"sync"
	"time"

	"stream-compositor/internal/clock"
	"stream-compositor/internal/logging"
	"stream-compositor/internal/metrics"
)

// Defaults for pump rates and stall recovery.
const (
	DefaultFPS        = 30
	DefaultDisplayFPS = 60
	// DefaultRecoveryKicks is how many manual frames are produced after
	// returning to visibility, to flush any stall accumulated while the
	// page was throttled.
	DefaultRecoveryKicks = 5
	// DefaultKickSpacing separates consecutive recovery kicks.
	DefaultKickSpacing = 30 * time.Millisecond
)

// Config wires a Scheduler to its collaborators. Only Clock and Tick are
// required; every hook is optional.
type Config struct {
	Clock clock.Clock

	// FPS is the fixed rate of the background pump.
	FPS int
	// DisplayFPS is the per-frame callback rate of the foreground pump.
	DisplayFPS int

	// Tick produces one composited frame. A nil Tick turns every pump
	// into a silent no-op (no drawing surface is not a crash).
	Tick func()

	// OnBackgroundFrame is invoked once per background pump tick.
	OnBackgroundFrame func()
	// OnHidden fires when the scheduler switches to the background pump
	// (the session starts complexity monitoring here).
	OnHidden func()
	// OnVisible fires when the scheduler switches back to the foreground
	// pump (the session stops complexity monitoring here).
	OnVisible func()
	// ResumePausedSource lets the session resume a video source that
	// paused while hidden.
	ResumePausedSource func()
	// SetPumpLabel tags compositor ticks for metrics.
	SetPumpLabel func(label string)

	RecoveryKicks int
	KickSpacing   time.Duration
}

func (c Config) withDefaults() Config {
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	if c.DisplayFPS <= 0 {
		c.DisplayFPS = DefaultDisplayFPS
	}
	if c.RecoveryKicks <= 0 {
		c.RecoveryKicks = DefaultRecoveryKicks
	}
	if c.KickSpacing <= 0 {
		c.KickSpacing = DefaultKickSpacing
	}
	return c
}

// Scheduler keeps frame production alive across visibility changes by
// running exactly one of two mutually exclusive pumps: a per-frame
// foreground pump, or a fixed-period background pump used while the page
// is hidden and per-frame callbacks are throttled.
type Scheduler struct {
	cfg Config

	mu      sync.Mutex
	running bool
	visible bool
	fg      clock.Ticker
	bg      clock.Ticker
	kicks   []clock.Timer
}

// New creates a stopped scheduler that considers the page visible.
func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg.withDefaults(), visible: true}
}

// Start begins the pump matching the current visibility. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	if s.visible {
		s.startForegroundLocked()
	} else {
		s.startBackgroundLocked()
	}
}

// Stop halts whichever pump is active and cancels pending recovery
// kicks. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.stopPumpsLocked()
}

// Running reports whether the scheduler drives a pump.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ForegroundActive reports whether the per-frame pump is the driver.
func (s *Scheduler) ForegroundActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fg != nil
}

// BackgroundActive reports whether the timer pump is the driver.
func (s *Scheduler) BackgroundActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bg != nil
}

// SetVisible reacts to a page visibility change. Hidden swaps the
// foreground pump for the background one; visible swaps back and issues
// a bounded burst of manual frame kicks to recover from throttling.
// No-op when the state is unchanged or the scheduler is stopped.
func (s *Scheduler) SetVisible(visible bool) {
	s.mu.Lock()
	if s.visible == visible {
		s.mu.Unlock()
		return
	}
	s.visible = visible
	if !s.running {
		s.mu.Unlock()
		return
	}

	s.stopPumpsLocked()
	var after func()
	if visible {
		s.startForegroundLocked()
		s.scheduleKicksLocked()
		after = func() {
			if s.cfg.OnVisible != nil {
				s.cfg.OnVisible()
			}
			if s.cfg.ResumePausedSource != nil {
				s.cfg.ResumePausedSource()
			}
		}
		logging.Debug("scheduler: visible, foreground pump resumed")
	} else {
		s.startBackgroundLocked()
		after = func() {
			if s.cfg.OnHidden != nil {
				s.cfg.OnHidden()
			}
		}
		logging.Debug("scheduler: hidden, background pump at %d fps", s.cfg.FPS)
	}
	s.mu.Unlock()

	// Hooks run unlocked; they reach back into the session.
	after()
}

// startForegroundLocked starts the per-frame pump. Caller holds the lock.
func (s *Scheduler) startForegroundLocked() {
	if s.fg != nil {
		return
	}
	if s.cfg.SetPumpLabel != nil {
		s.cfg.SetPumpLabel("foreground")
	}
	period := time.Second / time.Duration(s.cfg.DisplayFPS)
	s.fg = s.cfg.Clock.NewTicker(period, s.tickOnce)
	metrics.PumpSwitchesTotal.WithLabelValues("foreground").Inc()
}

// startBackgroundLocked starts the fixed-period pump. Caller holds the lock.
func (s *Scheduler) startBackgroundLocked() {
	if s.bg != nil {
		return
	}
	if s.cfg.SetPumpLabel != nil {
		s.cfg.SetPumpLabel("background")
	}
	period := time.Second / time.Duration(s.cfg.FPS)
	s.bg = s.cfg.Clock.NewTicker(period, s.backgroundTick)
	metrics.PumpSwitchesTotal.WithLabelValues("background").Inc()
}

// stopPumpsLocked stops both pumps and pending kicks. Caller holds the lock.
func (s *Scheduler) stopPumpsLocked() {
	if s.fg != nil {
		s.fg.Stop()
		s.fg = nil
	}
	if s.bg != nil {
		s.bg.Stop()
		s.bg = nil
	}
	for _, k := range s.kicks {
		k.Stop()
	}
	s.kicks = nil
}

// scheduleKicksLocked arms the post-visibility recovery burst. Caller
// holds the lock.
func (s *Scheduler) scheduleKicksLocked() {
	for i := 1; i <= s.cfg.RecoveryKicks; i++ {
		d := time.Duration(i) * s.cfg.KickSpacing
		s.kicks = append(s.kicks, s.cfg.Clock.AfterFunc(d, s.kickOnce))
	}
}

func (s *Scheduler) tickOnce() {
	if s.cfg.Tick != nil {
		s.cfg.Tick()
	}
}

func (s *Scheduler) backgroundTick() {
	s.tickOnce()
	if s.cfg.OnBackgroundFrame != nil {
		s.cfg.OnBackgroundFrame()
	}
}

func (s *Scheduler) kickOnce() {
	s.mu.Lock()
	ok := s.running && s.visible
	s.mu.Unlock()
	if !ok {
		return
	}
	metrics.RecoveryKicksTotal.Inc()
	if s.cfg.SetPumpLabel != nil {
		s.cfg.SetPumpLabel("kick")
	}
	s.tickOnce()
	if s.cfg.SetPumpLabel != nil {
		s.cfg.SetPumpLabel("foreground")
	}
}
