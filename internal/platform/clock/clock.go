package clock

import "time"

// Clock supplies the current time to services so tests can pin it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the wall clock in UTC.
func System() Clock { return systemClock{} }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// NotBefore returns now, or prev when the clock has stepped backwards.
// Record timestamps never decrease across their own updates.
func NotBefore(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
