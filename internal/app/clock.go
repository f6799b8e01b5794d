package app

import "time"

// Clock abstracts wall time so day-boundary transitions are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a func to Clock; tests use this for fixed timestamps.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
