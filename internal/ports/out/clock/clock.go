package clock

import "time"

// Clock is the application's source of "now": cache freshness, contract numbers,
// timestamps and "this month" statistics all read it.
type Clock interface {
	Now() time.Time
}
