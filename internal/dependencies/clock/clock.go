package clock

import "time"

// Clock is the source of record timestamps. Mocked in tests.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in UTC
type System struct{}

// New returns the system clock
func New() System {
	return System{}
}

// Now returns the current UTC time
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Millis returns the clock's current time as epoch milliseconds, the unit
// every stored timestamp uses
func Millis(c Clock) int64 {
	return c.Now().UnixMilli()
}

// FromMillis converts a stored timestamp back into a UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
