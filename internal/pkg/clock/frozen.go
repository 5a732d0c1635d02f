package clock

import (
	"sync"
	"time"
)

// FrozenClocker returns a fixed time until it is moved explicitly.
type FrozenClocker struct {
	mu sync.Mutex
	t  time.Time
}

// NewFrozen returns a FrozenClocker stopped at t.
func NewFrozen(t time.Time) *FrozenClocker {
	return &FrozenClocker{t: t}
}

func (f *FrozenClocker) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *FrozenClocker) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Add moves the clock forward by d.
func (f *FrozenClocker) Add(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
