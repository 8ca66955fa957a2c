package clock

import (
	"sync"
	"time"
)

// Manual is a virtual Clock for tests. Time only moves when Advance is
// called; due callbacks run synchronously, in timestamp order, on the
// calling goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	events []*manualEvent
}

type manualEvent struct {
	id     int
	due    time.Time
	period time.Duration // 0 for one-shot timers
	fn     func()
	clk    *Manual
}

// NewManual creates a Manual clock starting at a fixed, arbitrary epoch.
func NewManual() *Manual {
	return &Manual{now: time.Unix(1_700_000_000, 0)}
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules fn once at now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := m.schedule(d, 0, fn)
	return ev
}

// NewTicker schedules fn every d.
func (m *Manual) NewTicker(d time.Duration, fn func()) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker period")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := m.schedule(d, d, fn)
	return manualTicker{ev: ev}
}

// manualTicker adapts a periodic event to the Ticker interface, whose
// Stop (unlike Timer's) reports nothing.
type manualTicker struct {
	ev *manualEvent
}

func (t manualTicker) Stop() { t.ev.Stop() }

// schedule must be called with the lock held.
func (m *Manual) schedule(d, period time.Duration, fn func()) *manualEvent {
	m.nextID++
	ev := &manualEvent{
		id:     m.nextID,
		due:    m.now.Add(d),
		period: period,
		fn:     fn,
		clk:    m,
	}
	m.events = append(m.events, ev)
	return ev
}

// Advance moves virtual time forward by d, firing every callback that
// becomes due along the way. Callbacks run without the lock held so they
// may schedule further events or stop existing ones.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	for {
		ev := m.nextDue(target)
		if ev == nil {
			break
		}
		m.now = ev.due
		if ev.period > 0 {
			ev.due = ev.due.Add(ev.period)
		} else {
			m.remove(ev.id)
		}
		fn := ev.fn
		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// nextDue returns the earliest event due at or before target, or nil.
// Ties break by registration order. Must be called with the lock held.
func (m *Manual) nextDue(target time.Time) *manualEvent {
	var best *manualEvent
	for _, ev := range m.events {
		if ev.due.After(target) {
			continue
		}
		if best == nil || ev.due.Before(best.due) || (ev.due.Equal(best.due) && ev.id < best.id) {
			best = ev
		}
	}
	return best
}

// remove must be called with the lock held.
func (m *Manual) remove(id int) bool {
	for i, ev := range m.events {
		if ev.id == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of scheduled events. Useful for asserting
// that stops and teardowns released their timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (ev *manualEvent) Stop() bool {
	ev.clk.mu.Lock()
	defer ev.clk.mu.Unlock()
	return ev.clk.remove(ev.id)
}
