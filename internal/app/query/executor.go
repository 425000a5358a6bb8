// Package query runs filtered, paginated reads against a record store and
// keeps their results in the cache.
package query

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

// Source is the read side of a record store. Count and List must apply the
// same predicates; List additionally applies the filter's window and ordering
// and returns records with their related sub-records attached.
type Source[T any] interface {
	Count(ctx context.Context, f domain.Filter) (int, error)
	List(ctx context.Context, f domain.Filter) ([]T, error)
}

// SourceFuncs adapts a pair of functions to Source.
type SourceFuncs[T any] struct {
	CountFunc func(ctx context.Context, f domain.Filter) (int, error)
	ListFunc  func(ctx context.Context, f domain.Filter) ([]T, error)
}

func (s SourceFuncs[T]) Count(ctx context.Context, f domain.Filter) (int, error) {
	return s.CountFunc(ctx, f)
}

func (s SourceFuncs[T]) List(ctx context.Context, f domain.Filter) ([]T, error) {
	return s.ListFunc(ctx, f)
}

type Options struct {
	// UseCache allows a fresh cached page to answer without a store round trip.
	UseCache bool
}

// Executor is safe for concurrent use.
type Executor[T any] struct {
	family cache.Family
	cache  *cache.Store
	src    Source[T]

	flight singleflight.Group
}

func NewExecutor[T any](family cache.Family, c *cache.Store, src Source[T]) *Executor[T] {
	return &Executor[T]{family: family, cache: c, src: src}
}

func (e *Executor[T]) Family() cache.Family { return e.family }

// Execute returns one page for f. On a cache miss (or with UseCache false) it
// issues a count and a windowed read with identical predicates, then caches
// the assembled page under f's canonical key.
func (e *Executor[T]) Execute(ctx context.Context, f domain.Filter, opts Options) (domain.Page[T], error) {
	f = f.Normalized()
	key := f.Key()

	if opts.UseCache {
		if v, ok := e.cache.Get(e.family, key); ok {
			if p, ok := v.(domain.Page[T]); ok {
				return clonePage(p), nil
			}
		}
		// Concurrent misses on one key and cache generation share a single
		// count/read pair. A read that starts after an invalidation never joins
		// a flight begun before it.
		gen := e.cache.Generation(e.family)
		shared := context.WithoutCancel(ctx)
		ch := e.flight.DoChan(strconv.FormatUint(gen, 10)+"|"+key, func() (any, error) {
			return e.fetch(shared, f, key, gen)
		})
		select {
		case <-ctx.Done():
			return domain.Page[T]{}, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return domain.Page[T]{}, res.Err
			}
			return clonePage(res.Val.(domain.Page[T])), nil
		}
	}

	p, err := e.fetch(ctx, f, key, e.cache.Generation(e.family))
	if err != nil {
		return domain.Page[T]{}, err
	}
	return clonePage(p), nil
}

// fetch reads from the store and caches the page only if the family has not
// been invalidated since gen was taken.
func (e *Executor[T]) fetch(ctx context.Context, f domain.Filter, key string, gen uint64) (domain.Page[T], error) {
	total, err := e.src.Count(ctx, f)
	if err != nil {
		return domain.Page[T]{}, apperr.Store("count "+string(e.family), err)
	}
	items, err := e.src.List(ctx, f)
	if err != nil {
		return domain.Page[T]{}, apperr.Store("list "+string(e.family), err)
	}

	p := domain.NewPage(items, total, f)
	e.cache.PutIfCurrent(e.family, key, gen, p)
	return p, nil
}

// All walks every page of f from the first, bypassing the cache.
func (e *Executor[T]) All(ctx context.Context, f domain.Filter) ([]T, error) {
	f = f.Normalized()
	pageSize := domain.MaxPageSize
	var out []T
	for page := 1; ; page++ {
		pf := f
		pf.Page = page
		pf.PageSize = pageSize
		p, err := e.Execute(ctx, pf, Options{})
		if err != nil {
			return nil, err
		}
		out = append(out, p.Items...)
		if !p.HasMore || len(p.Items) == 0 {
			return out, nil
		}
	}
}

func clonePage[T any](p domain.Page[T]) domain.Page[T] {
	out := p
	out.Items = append(make([]T, 0, len(p.Items)), p.Items...)
	return out
}
