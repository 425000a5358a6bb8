package customerrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/pagination"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
)

// Repo is an in-memory implementation of customerrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.CustomerID]domain.Customer
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.CustomerID]domain.Customer)}
}

func (r *Repo) Create(ctx context.Context, c domain.Customer) error {
	_ = ctx
	if c.ID == "" {
		return customerrepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; ok {
		return customerrepo.ErrAlreadyExists
	}
	r.byID[c.ID] = c.Clone()
	return nil
}

func (r *Repo) Save(ctx context.Context, c domain.Customer) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; !ok {
		return customerrepo.ErrNotFound
	}
	r.byID[c.ID] = c.Clone()
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.CustomerID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return customerrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.CustomerID) (domain.Customer, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.Customer{}, customerrepo.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *Repo) Count(ctx context.Context, f domain.Filter) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matching(f.Normalized())), nil
}

func (r *Repo) List(ctx context.Context, f domain.Filter) ([]domain.Customer, error) {
	_ = ctx
	n := f.Normalized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.matching(n)
	sortCustomers(all, n)
	return pagination.Slice(all, n.Window()), nil
}

func (r *Repo) matching(f domain.Filter) []domain.Customer {
	out := make([]domain.Customer, 0)
	for _, c := range r.byID {
		if !f.HasStatus(string(c.Status)) || !f.InRange(c.CreatedAt) {
			continue
		}
		if f.CustomerID != "" && string(c.ID) != f.CustomerID {
			continue
		}
		if !pagination.Contains(f.Search, c.FullName, c.Phone, deref(c.Email), deref(c.NationalID)) {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

func sortCustomers(cs []domain.Customer, f domain.Filter) {
	col := f.SortBy
	if !customerrepo.SortColumns[col] {
		col = ""
	}
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		var cmp int
		switch col {
		case "full_name":
			cmp = strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
		case "status":
			cmp = strings.Compare(string(a.Status), string(b.Status))
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			cmp = strings.Compare(string(a.ID), string(b.ID))
		}
		if col == "" || !f.SortAsc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
