// Package clock hides time.Now and time.AfterFunc behind interfaces so tests
// can freeze time and fire delayed work on demand.
package clock

import "time"

type Clocker interface {
	Now() time.Time
}

type system struct{}

func (system) Now() time.Time { return time.Now() }

// New returns the wall clock.
func New() Clocker { return system{} }
