package clock

import "time"

// SystemClock returns the current wall-clock time in a fixed location.
// The location decides which calendar month "this month" statistics use.
type SystemClock struct {
	loc *time.Location
}

func NewSystemClock() SystemClock { return SystemClock{loc: time.UTC} }

// NewSystemClockIn returns a clock reporting times in loc; nil means UTC.
func NewSystemClockIn(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{loc: loc}
}

func (c SystemClock) Now() time.Time {
	if c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}
