package clock

import "time"

// Clock abstracts time measurement and callback scheduling so that the
// compositor, pumps, and validator can be driven by a virtual clock in tests.
type Clock interface {
	// Now returns the current time. Implementations must be monotonic
	// within a single Clock instance.
	Now() time.Time

	// AfterFunc schedules fn to run once after d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer

	// NewTicker schedules fn to run every d until the ticker is stopped.
	// d must be positive.
	NewTicker(d time.Duration, fn func()) Ticker
}

// Timer is a handle to a pending AfterFunc callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call stopped the
	// timer before the callback ran.
	Stop() bool
}

// Ticker is a handle to a repeating callback.
type Ticker interface {
	// Stop cancels the ticker. Safe to call more than once.
	Stop()
}

// System returns a Clock backed by the wall clock and real timers.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{t: time.AfterFunc(d, fn)}
}

func (systemClock) NewTicker(d time.Duration, fn func()) Ticker {
	t := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	return &systemTicker{t: t, done: done}
}

type systemTimer struct {
	t *time.Timer
}

func (st systemTimer) Stop() bool {
	return st.t.Stop()
}

type systemTicker struct {
	t       *time.Ticker
	done    chan struct{}
	stopped bool
}

func (st *systemTicker) Stop() {
	if st.stopped {
		return
	}
	st.stopped = true
	st.t.Stop()
	close(st.done)
}
