// Package cache is the in-process, time-bounded store of query results.
//
// Entries are grouped into families (one per record type). Each family has
// its own TTL, and a mutation on a record type drops that whole family.
// An expired entry reads as absent but stays in memory until Sweep.
package cache

import (
	"sync"
	"time"

	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/clock"
)

type Family string

const (
	FamilyContracts Family = "contracts"
	FamilyCustomers Family = "customers"
)

const (
	DefaultContractsTTL = 5 * time.Minute
	DefaultCustomersTTL = 2 * time.Minute
	// FallbackTTL applies to a family with no configured TTL.
	FallbackTTL = time.Minute
)

// DefaultTTLs returns the stock per-family TTLs.
func DefaultTTLs() map[Family]time.Duration {
	return map[Family]time.Duration{
		FamilyContracts: DefaultContractsTTL,
		FamilyCustomers: DefaultCustomersTTL,
	}
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Store is safe for concurrent use. It never fails; at worst a caller sees a miss.
type Store struct {
	clock   clock.Clock
	metrics *Metrics

	mu       sync.Mutex
	ttl      map[Family]time.Duration
	families map[Family]map[string]entry
	gens     map[Family]uint64
}

type Option func(*Store)

// WithTTL overrides the TTL for one family. Non-positive values are ignored.
func WithTTL(f Family, d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl[f] = d
		}
	}
}

// WithMetrics records hits, misses and invalidations.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func New(clk clock.Clock, opts ...Option) *Store {
	s := &Store{
		clock:    clk,
		ttl:      DefaultTTLs(),
		families: map[Family]map[string]entry{},
		gens:     map[Family]uint64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the freshness window for family f.
func (s *Store) TTL(f Family) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttlLocked(f)
}

func (s *Store) ttlLocked(f Family) time.Duration {
	if d, ok := s.ttl[f]; ok {
		return d
	}
	return FallbackTTL
}

// Get returns the value stored under key while now - fetchedAt < TTL(f).
func (s *Store) Get(f Family, key string) (any, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	e, ok := s.families[f][key]
	fresh := ok && now.Sub(e.fetchedAt) < s.ttlLocked(f)
	s.mu.Unlock()

	if !fresh {
		s.metrics.miss(f)
		return nil, false
	}
	s.metrics.hit(f)
	return e.value, true
}

// Generation changes every time family f is invalidated.
func (s *Store) Generation(f Family) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[f]
}

// Put stores value under key, stamped with the current time.
func (s *Store) Put(f Family, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(f, key, value)
}

// PutIfCurrent stores value only if f has not been invalidated since gen was
// read. A read that raced a mutation is returned to its caller but not cached.
func (s *Store) PutIfCurrent(f Family, key string, gen uint64, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[f] != gen {
		return false
	}
	s.putLocked(f, key, value)
	return true
}

func (s *Store) putLocked(f Family, key string, value any) {
	now := s.clock.Now()
	m := s.families[f]
	if m == nil {
		m = map[string]entry{}
		s.families[f] = m
	}
	m[key] = entry{value: value, fetchedAt: now}
}

// InvalidateFamily drops every entry of family f.
func (s *Store) InvalidateFamily(f Family) {
	s.mu.Lock()
	delete(s.families, f)
	s.gens[f]++
	s.mu.Unlock()
	s.metrics.invalidation(f)
}

func (s *Store) InvalidateAll() {
	s.mu.Lock()
	fams := make([]Family, 0, len(s.families))
	for f := range s.families {
		fams = append(fams, f)
	}
	for f := range s.ttl {
		s.gens[f]++
	}
	for _, f := range fams {
		if _, ok := s.ttl[f]; !ok {
			s.gens[f]++
		}
	}
	s.families = map[Family]map[string]entry{}
	s.mu.Unlock()

	for _, f := range fams {
		s.metrics.invalidation(f)
	}
}

// Sweep evicts expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for f, m := range s.families {
		ttl := s.ttlLocked(f)
		for k, e := range m {
			if now.Sub(e.fetchedAt) >= ttl {
				delete(m, k)
				n++
			}
		}
		if len(m) == 0 {
			delete(s.families, f)
		}
	}
	return n
}

// Len counts stored entries, fresh or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.families {
		n += len(m)
	}
	return n
}
