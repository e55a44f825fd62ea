package schedule

import (
	"sort"
	"sync"
	"time"
)

// Timer cancels a scheduled callback. Stop reports whether the call
// prevented the callback from running.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Time
}

type realScheduler struct{}

// Real returns a Scheduler backed by time.AfterFunc. Callbacks run on their
// own goroutines.
func Real() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func (realScheduler) Now() time.Time {
	return time.Now()
}

// Manual is a deterministic Scheduler. Time moves only through Advance or
// RunNext, and due callbacks run synchronously on the caller's goroutine in
// deadline order (ties in scheduling order).
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	owner *Manual
	at    time.Time
	seq   uint64
	delay time.Duration
	fn    func()
	done  bool
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers fn to run once the clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, at: m.now.Add(d), seq: m.seq, delay: d, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	m := t.owner
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	m.removeLocked(t)
	return true
}

func (m *Manual) removeLocked(target *manualTimer) {
	for i, t := range m.timers {
		if t == target {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// popDueLocked removes and returns the earliest timer due at or before limit.
func (m *Manual) popDueLocked(limit time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	next := m.timers[0]
	if next.at.After(limit) {
		return nil
	}
	m.timers = m.timers[1:]
	next.done = true
	return next
}

// Advance moves the clock forward by d, running every callback that becomes
// due, including ones scheduled by callbacks during the advance.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	limit := m.now.Add(d)
	m.mu.Unlock()

	ran := 0
	for {
		m.mu.Lock()
		t := m.popDueLocked(limit)
		if t == nil {
			m.now = limit
			m.mu.Unlock()
			return ran
		}
		m.now = t.at
		m.mu.Unlock()
		t.fn()
		ran++
	}
}

// RunNext jumps to the earliest pending timer and runs it. It returns the
// delay that timer was scheduled with and false when nothing is pending.
func (m *Manual) RunNext() (time.Duration, bool) {
	m.mu.Lock()
	t := m.popDueLocked(time.Unix(1<<62, 0))
	if t == nil {
		m.mu.Unlock()
		return 0, false
	}
	m.now = t.at
	m.mu.Unlock()
	t.fn()
	return t.delay, true
}

// Pending returns the number of scheduled, unfired timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// PendingDelays returns the original delays of scheduled timers in deadline order.
func (m *Manual) PendingDelays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	timers := append([]*manualTimer(nil), m.timers...)
	sort.SliceStable(timers, func(i, j int) bool {
		if timers[i].at.Equal(timers[j].at) {
			return timers[i].seq < timers[j].seq
		}
		return timers[i].at.Before(timers[j].at)
	})
	out := make([]time.Duration, len(timers))
	for i, t := range timers {
		out[i] = t.delay
	}
	return out
}
