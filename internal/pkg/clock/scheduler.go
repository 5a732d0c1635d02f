package clock

import (
	"sync"
	"time"
)

// Cancel stops a scheduled function. It reports whether the call prevented
// the function from running.
type Cancel func() bool

// Scheduler runs functions after a delay.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Cancel
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

// NewScheduler returns a TimerScheduler.
func NewScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

// Schedule runs fn on its own goroutine once delay has elapsed.
func (*TimerScheduler) Schedule(delay time.Duration, fn func()) Cancel {
	t := time.AfterFunc(delay, fn)
	return t.Stop
}

// ManualScheduler queues functions until Advance is called. It is meant for tests.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*manualTask
}

type manualTask struct {
	at       time.Duration
	delay    time.Duration
	fn       func()
	canceled bool
	fired    bool
}

// NewManualScheduler returns an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule queues fn to run when the virtual time passes delay.
func (m *ManualScheduler) Schedule(delay time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := &manualTask{at: m.now + delay, delay: delay, fn: fn}
	m.pending = append(m.pending, task)

	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if task.fired || task.canceled {
			return false
		}
		task.canceled = true
		return true
	}
}

// Advance moves virtual time forward and runs every due task in order.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	due := make([]*manualTask, 0, len(m.pending))
	rest := m.pending[:0]
	for _, t := range m.pending {
		switch {
		case t.canceled:
		case t.at <= m.now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	m.pending = rest
	m.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// Pending returns the delays of tasks that have neither fired nor been canceled.
func (m *ManualScheduler) Pending() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Duration, 0, len(m.pending))
	for _, t := range m.pending {
		if !t.canceled {
			out = append(out, t.delay)
		}
	}
	return out
}
