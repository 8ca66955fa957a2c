package scheduler

import (
	"testing"
	"time"

	"stream-compositor/internal/clock"
)

type tickCounter struct {
	ticks           int
	backgroundTicks int
	labels          []string
}

func (tc *tickCounter) config(clk clock.Clock) Config {
	return Config{
		Clock:             clk,
		Tick:              func() { tc.ticks++ },
		OnBackgroundFrame: func() { tc.backgroundTicks++ },
		SetPumpLabel:      func(l string) { tc.labels = append(tc.labels, l) },
	}
}

func TestStartRunsForegroundPump(t *testing.T) {
	clk := clock.NewManual()
	tc := &tickCounter{}
	s := New(tc.config(clk))

	s.Start()
	if !s.ForegroundActive() || s.BackgroundActive() {
		t.Fatal("expected only the foreground pump after Start")
	}

	clk.Advance(time.Second)
	if tc.ticks != DefaultDisplayFPS {
		t.Fatalf("foreground ticks in 1s = %d, want %d", tc.ticks, DefaultDisplayFPS)
	}
	if tc.backgroundTicks != 0 {
		t.Fatal("background hook fired under the foreground pump")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	clk := clock.NewManual()
	tc := &tickCounter{}
	s := New(tc.config(clk))

	s.Start()
	s.Start()
	if got := clk.Pending(); got != 1 {
		t.Fatalf("pending tickers after double Start = %d, want 1", got)
	}

	s.Stop()
	s.Stop()
	if got := clk.Pending(); got != 0 {
		t.Fatalf("pending tickers after Stop = %d, want 0", got)
	}
}

func TestHiddenSwitchesToBackgroundPump(t *testing.T) {
	clk := clock.NewManual()
	tc := &tickCounter{}
	cfg := tc.config(clk)

	hidden := 0
	cfg.OnHidden = func() { hidden++ }
	s := New(cfg)
	s.Start()

	s.SetVisible(false)
	if s.ForegroundActive() {
		t.Fatal("foreground pump still active while hidden")
	}
	if !s.BackgroundActive() {
		t.Fatal("background pump not active while hidden")
	}
	if hidden != 1 {
		t.Fatalf("OnHidden fired %d times, want 1", hidden)
	}

	// Background pump runs at the configured fps (default 30).
	clk.Advance(time.Second)
	if tc.ticks != DefaultFPS {
		t.Fatalf("background ticks in 1s = %d, want %d", tc.ticks, DefaultFPS)
	}
	if tc.backgroundTicks != DefaultFPS {
		t.Fatalf("OnBackgroundFrame fired %d times, want %d", tc.backgroundTicks, DefaultFPS)
	}
}

func TestVisibleRestoresForegroundWithKicks(t *testing.T) {
	clk := clock.NewManual()
	tc := &tickCounter{}
	cfg := tc.config(clk)

	visible := 0
	resumed := 0
	cfg.OnVisible = func() { visible++ }
	cfg.ResumePausedSource = func() { resumed++ }
	s := New(cfg)
	s.Start()
	s.SetVisible(false)
	clk.Advance(500 * time.Millisecond)
	baseline := tc.ticks

	s.SetVisible(true)
	if !s.ForegroundActive() || s.BackgroundActive() {
		t.Fatal("expected only the foreground pump after returning to visibility")
	}
	if visible != 1 || resumed != 1 {
		t.Fatalf("OnVisible/ResumePausedSource fired %d/%d times, want 1/1", visible, resumed)
	}

	// Five recovery kicks spaced 30ms apart arrive on top of the
	// foreground pump's own ticks.
	foreground := 0
	clk.Advance(DefaultKickSpacing * DefaultRecoveryKicks)
	elapsed := DefaultKickSpacing * DefaultRecoveryKicks
	foreground = int(elapsed / (time.Second / DefaultDisplayFPS))
	want := baseline + DefaultRecoveryKicks + foreground
	if tc.ticks != want {
		t.Fatalf("ticks after recovery window = %d, want %d (baseline %d + %d kicks + %d pump)",
			tc.ticks, want, baseline, DefaultRecoveryKicks, foreground)
	}
}

func TestExactlyOnePumpAcrossTransitions(t *testing.T) {
	clk := clock.NewManual()
	tc := &tickCounter{}
	s := New(tc.config(clk))
	s.Start()

	states := []bool{false, true, false, false, true, true}
	for _, v := range states {
		s.SetVisible(v)
		fg, bg := s.ForegroundActive(), s.BackgroundActive()
		if fg == bg {
			t.Fatalf("pump invariant broken after SetVisible(%v): fg=%v bg=%v", v, fg, bg)
		}
	}
}

func TestSetVisibleSameStateIsNoop(t *testing.T) {
	clk := clock.NewManual()
	tc := &tickCounter{}
	cfg := tc.config(clk)
	hidden := 0
	cfg.OnHidden = func() { hidden++ }
	s := New(cfg)
	s.Start()

	s.SetVisible(true) // already visible
	s.SetVisible(false)
	s.SetVisible(false)
	if hidden != 1 {
		t.Fatalf("OnHidden fired %d times for one real transition, want 1", hidden)
	}
}

func TestNilTickIsSilentNoop(t *testing.T) {
	clk := clock.NewManual()
	s := New(Config{Clock: clk})
	s.Start()
	// No drawing surface: ticks must be silently dropped, not crash.
	clk.Advance(time.Second)
	s.SetVisible(false)
	clk.Advance(time.Second)
	s.Stop()
}

func TestStopCancelsPendingKicks(t *testing.T) {
	clk := clock.NewManual()
	tc := &tickCounter{}
	s := New(tc.config(clk))
	s.Start()
	s.SetVisible(false)
	s.SetVisible(true)

	s.Stop()
	before := tc.ticks
	clk.Advance(time.Second)
	if tc.ticks != before {
		t.Fatalf("ticks advanced after Stop: %d -> %d", before, tc.ticks)
	}
	if clk.Pending() != 0 {
		t.Fatalf("pending events after Stop = %d, want 0", clk.Pending())
	}
}

func TestVisibilityChangeWhileStopped(t *testing.T) {
	clk := clock.NewManual()
	tc := &tickCounter{}
	s := New(tc.config(clk))

	// Not started: transitions record state but start nothing.
	s.SetVisible(false)
	if s.BackgroundActive() {
		t.Fatal("stopped scheduler started a pump")
	}

	// Starting afterwards honors the recorded state.
	s.Start()
	if !s.BackgroundActive() {
		t.Fatal("Start ignored the recorded hidden state")
	}
}
