package clock

import (
	"testing"
	"time"
)

func TestManualAfterFunc(t *testing.T) {
	clk := NewManual()
	fired := 0
	clk.AfterFunc(100*time.Millisecond, func() { fired++ })

	clk.Advance(99 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("timer fired early: fired=%d", fired)
	}

	clk.Advance(1 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("timer did not fire at due time: fired=%d", fired)
	}

	clk.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("one-shot timer fired again: fired=%d", fired)
	}
}

func TestManualAfterFuncStop(t *testing.T) {
	clk := NewManual()
	fired := false
	timer := clk.AfterFunc(50*time.Millisecond, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop() on pending timer returned false")
	}
	clk.Advance(time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if timer.Stop() {
		t.Fatal("second Stop() returned true")
	}
}

func TestManualTicker(t *testing.T) {
	clk := NewManual()
	ticks := 0
	ticker := clk.NewTicker(30*time.Millisecond, func() { ticks++ })

	clk.Advance(100 * time.Millisecond)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks after 100ms at 30ms period, got %d", ticks)
	}

	ticker.Stop()
	clk.Advance(time.Second)
	if ticks != 3 {
		t.Fatalf("stopped ticker kept firing: ticks=%d", ticks)
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected no pending events after Stop, got %d", clk.Pending())
	}
}

// The manual clock must satisfy the same interfaces the system clock does,
// including a Ticker whose Stop is void and idempotent.
func TestManualSatisfiesClock(t *testing.T) {
	var clk Clock = NewManual()

	ticks := 0
	var ticker Ticker = clk.NewTicker(10*time.Millisecond, func() { ticks++ })
	var timer Timer = clk.AfterFunc(10*time.Millisecond, func() {})

	clk.(*Manual).Advance(25 * time.Millisecond)
	if ticks != 2 {
		t.Fatalf("ticks = %d, want 2", ticks)
	}

	ticker.Stop()
	ticker.Stop() // second stop is a no-op
	timer.Stop()
	if got := clk.(*Manual).Pending(); got != 0 {
		t.Fatalf("pending events after stops = %d, want 0", got)
	}
}

func TestManualOrdering(t *testing.T) {
	clk := NewManual()
	var order []string
	clk.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })
	clk.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	clk.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })

	clk.Advance(50 * time.Millisecond)

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("expected %d callbacks, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("callback order = %v, want %v", order, want)
		}
	}
}

func TestManualCallbackSchedulesCallback(t *testing.T) {
	clk := NewManual()
	fired := false
	clk.AfterFunc(10*time.Millisecond, func() {
		clk.AfterFunc(10*time.Millisecond, func() { fired = true })
	})

	// A chained callback due within the same Advance window must fire.
	clk.Advance(25 * time.Millisecond)
	if !fired {
		t.Fatal("chained callback did not fire within the advance window")
	}
}

func TestManualNowAdvances(t *testing.T) {
	clk := NewManual()
	start := clk.Now()
	clk.Advance(250 * time.Millisecond)
	if got := clk.Now().Sub(start); got != 250*time.Millisecond {
		t.Fatalf("Now advanced by %v, want 250ms", got)
	}
}

func TestSystemClockNow(t *testing.T) {
	clk := System()
	before := time.Now()
	now := clk.Now()
	after := time.Now()
	if now.Before(before) || now.After(after) {
		t.Fatalf("System().Now() = %v outside [%v, %v]", now, before, after)
	}
}
