package stats

import (
	"sync"
	"time"
)

// Snapshotter is a revisioned collection, such as query.WorkingSet.
type Snapshotter[T any] interface {
	Snapshot() ([]T, uint64)
	Revision() uint64
}

// Memo caches the last computed snapshot and recomputes only when the
// collection's revision or the calendar month of now changes.
type Memo[T, S any] struct {
	compute func([]T, time.Time) S

	mu       sync.Mutex
	valid    bool
	rev      uint64
	year     int
	month    time.Month
	value    S
	computes int
}

func NewMemo[T, S any](compute func([]T, time.Time) S) *Memo[T, S] {
	return &Memo[T, S]{compute: compute}
}

func (m *Memo[T, S]) Get(src Snapshotter[T], now time.Time) S {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && src.Revision() == m.rev && now.Year() == m.year && now.Month() == m.month {
		return m.value
	}
	items, rev := src.Snapshot()
	m.value = m.compute(items, now)
	m.rev = rev
	m.year, m.month = now.Year(), now.Month()
	m.valid = true
	m.computes++
	return m.value
}

// Computes is how many times the compute function has run.
func (m *Memo[T, S]) Computes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computes
}
