package clock

import "time"

// Clock - time source, swapped for a fixed one in tests
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// New returns the wall clock in UTC.
func New() Clock {
	return realClock{}
}

// Fixed - clock that always returns T. Advance moves it forward.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }
