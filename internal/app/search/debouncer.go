// Package search coalesces bursts of search-text changes into one query.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/query"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

const DefaultDelay = 300 * time.Millisecond

// Timer is the part of *time.Timer the debouncer uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d; time.AfterFunc in production.
type AfterFunc func(d time.Duration, fn func()) Timer

func realAfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// ResultHandler receives the outcome of a debounced search.
type ResultHandler[T any] func(ctx context.Context, f domain.Filter, p domain.Page[T], err error)

// Debouncer holds a single pending search. Each Schedule replaces the pending
// one and restarts the delay, so only the last call of a burst executes.
// Searches always bypass the cache.
type Debouncer[T any] struct {
	exec      *query.Executor[T]
	onResult  ResultHandler[T]
	delay     time.Duration
	afterFunc AfterFunc

	mu      sync.Mutex
	timer   Timer
	pending *pendingSearch
	seq     uint64
	stopped bool
}

type pendingSearch struct {
	ctx context.Context
	f   domain.Filter
	seq uint64
}

type Option[T any] func(*Debouncer[T])

func WithDelay[T any](d time.Duration) Option[T] {
	return func(db *Debouncer[T]) {
		if d > 0 {
			db.delay = d
		}
	}
}

// WithAfterFunc replaces the timer source, for tests.
func WithAfterFunc[T any](fn AfterFunc) Option[T] {
	return func(db *Debouncer[T]) {
		if fn != nil {
			db.afterFunc = fn
		}
	}
}

func New[T any](exec *query.Executor[T], onResult ResultHandler[T], opts ...Option[T]) *Debouncer[T] {
	db := &Debouncer[T]{
		exec:      exec,
		onResult:  onResult,
		delay:     DefaultDelay,
		afterFunc: realAfterFunc,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Schedule arms a search for text combined with the rest of the filter,
// starting from the first page. A later call supersedes it.
func (d *Debouncer[T]) Schedule(ctx context.Context, text string, rest domain.Filter) {
	f := rest
	f.Search = text
	f.Page = 1
	f = f.Normalized()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	p := &pendingSearch{ctx: context.WithoutCancel(ctx), f: f, seq: d.seq}
	d.pending = p
	d.timer = d.afterFunc(d.delay, func() { d.fire(p.seq) })
}

// Flush runs the pending search now, if any, and waits for it.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	p := d.take(0)
	d.mu.Unlock()
	if p != nil {
		d.run(p)
	}
}

// Stop drops any pending search; later Schedule calls are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.take(0)
}

// Pending reports whether a search is waiting for its delay to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	p := d.take(seq)
	d.mu.Unlock()
	if p != nil {
		d.run(p)
	}
}

// take clears and returns the pending search. A non-zero seq only matches
// the search it was armed for; a superseded timer gets nil.
func (d *Debouncer[T]) take(seq uint64) *pendingSearch {
	p := d.pending
	if p == nil || (seq != 0 && p.seq != seq) {
		return nil
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	return p
}

func (d *Debouncer[T]) run(p *pendingSearch) {
	page, err := d.exec.Execute(p.ctx, p.f, query.Options{UseCache: false})
	if d.onResult != nil {
		d.onResult(p.ctx, p.f, page, err)
	}
}
