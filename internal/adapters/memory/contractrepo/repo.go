package contractrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/pagination"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

type customerLookup interface {
	GetByID(ctx context.Context, id domain.CustomerID) (domain.Customer, error)
}

type vehicleLookup interface {
	GetByID(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error)
}

// Repo is an in-memory implementation of contractrepo.Repository.
// Joins are resolved against the customer and vehicle stores it is built with.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.ContractID]domain.Contract

	customers customerLookup
	vehicles  vehicleLookup
}

func NewRepo(customers customerLookup, vehicles vehicleLookup) *Repo {
	return &Repo{
		byID:      make(map[domain.ContractID]domain.Contract),
		customers: customers,
		vehicles:  vehicles,
	}
}

func (r *Repo) Create(ctx context.Context, c domain.Contract) error {
	_ = ctx
	if c.ID == "" {
		return contractrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; ok {
		return contractrepo.ErrAlreadyExists
	}
	r.byID[c.ID] = stripRefs(c)
	return nil
}

func (r *Repo) Save(ctx context.Context, c domain.Contract) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; !ok {
		return contractrepo.ErrNotFound
	}
	r.byID[c.ID] = stripRefs(c)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.ContractID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return contractrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ContractID, h contractrepo.Hydration) (domain.Contract, error) {
	r.mu.RLock()
	c, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Contract{}, contractrepo.ErrNotFound
	}
	c = c.Clone()
	if err := r.hydrate(ctx, &c, h); err != nil {
		return domain.Contract{}, err
	}
	return c, nil
}

func (r *Repo) Count(ctx context.Context, f domain.Filter) (int, error) {
	all, err := r.matching(ctx, f.Normalized())
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (r *Repo) List(ctx context.Context, f domain.Filter, h contractrepo.Hydration) ([]domain.Contract, error) {
	n := f.Normalized()
	all, err := r.matching(ctx, n)
	if err != nil {
		return nil, err
	}
	sortContracts(all, n)
	page := pagination.Slice(all, n.Window())
	for i := range page {
		if err := r.hydrate(ctx, &page[i], h); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func (r *Repo) matching(ctx context.Context, f domain.Filter) ([]domain.Contract, error) {
	r.mu.RLock()
	candidates := make([]domain.Contract, 0, len(r.byID))
	for _, c := range r.byID {
		if !f.HasStatus(string(c.Status)) || !f.HasPaymentStatus(string(c.PaymentStatus)) {
			continue
		}
		if f.CustomerID != "" && string(c.CustomerID) != f.CustomerID {
			continue
		}
		if f.VehicleID != "" && string(c.VehicleID) != f.VehicleID {
			continue
		}
		if !f.InRange(c.StartDate) {
			continue
		}
		candidates = append(candidates, c.Clone())
	}
	r.mu.RUnlock()

	if f.Search == "" {
		return candidates, nil
	}
	out := make([]domain.Contract, 0, len(candidates))
	for _, c := range candidates {
		var name, plate string
		if cu, err := r.customer(ctx, c.CustomerID); err != nil {
			return nil, err
		} else if cu != nil {
			name = cu.FullName
		}
		if v, err := r.vehicle(ctx, c.VehicleID); err != nil {
			return nil, err
		} else if v != nil {
			plate = v.PlateNumber
		}
		if pagination.Contains(f.Search, c.ContractNumber, name, plate) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *Repo) hydrate(ctx context.Context, c *domain.Contract, h contractrepo.Hydration) error {
	if h.Customer {
		cu, err := r.customer(ctx, c.CustomerID)
		if err != nil {
			return fmt.Errorf("join customer %s: %w", c.CustomerID, err)
		}
		if cu != nil {
			c.Customer = cu.Ref()
		}
	}
	if h.Vehicle {
		v, err := r.vehicle(ctx, c.VehicleID)
		if err != nil {
			return fmt.Errorf("join vehicle %s: %w", c.VehicleID, err)
		}
		if v != nil {
			c.Vehicle = v.Ref()
		}
	}
	return nil
}

// customer returns nil without error when the referenced row is gone (LEFT JOIN semantics).
func (r *Repo) customer(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	if r.customers == nil {
		return nil, nil
	}
	cu, err := r.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, customerrepo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cu, nil
}

func (r *Repo) vehicle(ctx context.Context, id domain.VehicleID) (*domain.Vehicle, error) {
	if r.vehicles == nil {
		return nil, nil
	}
	v, err := r.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func stripRefs(c domain.Contract) domain.Contract {
	cp := c.Clone()
	cp.Customer = nil
	cp.Vehicle = nil
	return cp
}

func sortContracts(cs []domain.Contract, f domain.Filter) {
	col := f.SortBy
	if !contractrepo.SortColumns[col] || col == "created_at" && !f.SortAsc {
		col = ""
	}
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		var cmp int
		switch col {
		case "start_date":
			cmp = a.StartDate.Compare(b.StartDate)
		case "end_date":
			cmp = a.EndDate.Compare(b.EndDate)
		case "total_amount":
			cmp = compareMoney(a.TotalAmount, b.TotalAmount)
		case "contract_number":
			cmp = strings.Compare(a.ContractNumber, b.ContractNumber)
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

func compareMoney(a, b domain.Money) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
