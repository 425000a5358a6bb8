package vehiclerepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

// Repo is an in-memory implementation of vehiclerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.VehicleID]domain.Vehicle

	// FailSetStatus, when non-nil, is returned by SetStatus. Tests use it to
	// simulate the fleet endpoint rejecting a side effect.
	FailSetStatus error
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.VehicleID]domain.Vehicle)}
}

func (r *Repo) Create(ctx context.Context, v domain.Vehicle) error {
	_ = ctx
	if v.ID == "" {
		return vehiclerepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[v.ID]; ok {
		return vehiclerepo.ErrAlreadyExists
	}
	r.byID[v.ID] = v
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[id]
	if !ok {
		return domain.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) SetStatus(ctx context.Context, id domain.VehicleID, status domain.VehicleStatus) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSetStatus != nil {
		return r.FailSetStatus
	}
	v, ok := r.byID[id]
	if !ok {
		return vehiclerepo.ErrNotFound
	}
	v.Status = status
	v.UpdatedAt = time.Now().UTC()
	r.byID[id] = v
	return nil
}

func (r *Repo) RecordMileage(ctx context.Context, id domain.VehicleID, mileage int) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byID[id]
	if !ok {
		return vehiclerepo.ErrNotFound
	}
	if mileage > v.Mileage {
		v.Mileage = mileage
	}
	v.UpdatedAt = time.Now().UTC()
	r.byID[id] = v
	return nil
}

func (r *Repo) ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Vehicle, 0)
	for _, v := range r.byID {
		if v.Status == status {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlateNumber == out[j].PlateNumber {
			return out[i].ID < out[j].ID
		}
		return out[i].PlateNumber < out[j].PlateNumber
	})
	return out, nil
}
