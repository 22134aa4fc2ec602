package timestamp

import "time"

// LocalWallClock is a datetime whose clock fields represent the local time at
// the capture location but whose zone is pinned to UTC. This is a legacy
// on-disk convention: callers must treat the value as local wall-clock time
// presented in UTC, never as an instant.
type LocalWallClock struct {
	time.Time
}

// NewLocalWallClock builds a wall-clock value from local clock fields.
func NewLocalWallClock(year int, month time.Month, day, hour, minute, sec, nsec int) LocalWallClock {
	return LocalWallClock{time.Date(year, month, day, hour, minute, sec, nsec, time.UTC)}
}

// FromLocal pins the clock fields of t (as rendered in its own location)
// to UTC.
func FromLocal(t time.Time) LocalWallClock {
	y, m, d := t.Date()
	h, min, s := t.Clock()
	return NewLocalWallClock(y, m, d, h, min, s, t.Nanosecond())
}

// Date returns the calendar date portion, still UTC-pinned.
func (w LocalWallClock) DateOnly() time.Time {
	y, m, d := w.Time.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
