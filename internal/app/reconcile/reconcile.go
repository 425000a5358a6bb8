// Package reconcile finds and repairs drift between contracts and vehicle
// status, which can arise because a contract write and its vehicle status
// side effect are two independent store calls.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/query"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

type DriftKind string

const (
	// DriftVehicleNotRented: a contract holds the vehicle but it is not marked rented.
	DriftVehicleNotRented DriftKind = "vehicle_not_rented"
	// DriftOrphanRental: the vehicle is rented but no contract holds it.
	DriftOrphanRental DriftKind = "orphan_rental"
	// DriftDoubleBooked: more than one contract holds the vehicle. Reported only.
	DriftDoubleBooked DriftKind = "double_booked"
)

type Drift struct {
	Kind          DriftKind
	VehicleID     domain.VehicleID
	VehicleStatus domain.VehicleStatus
	ContractIDs   []domain.ContractID
	Repaired      bool
	Error         string
}

type Report struct {
	CheckedContracts int
	RentedVehicles   int
	Drifts           []Drift
	Repaired         int
}

// Refresher is told which contracts a run changed, directly or through their
// vehicle, so loaded views can pick the change up.
type Refresher interface {
	Refresh(ctx context.Context, ids ...domain.ContractID)
}

type Service struct {
	contracts contractrepo.Repository
	vehicles  vehiclerepo.Repository
	cache     *cache.Store
	exec      *query.Executor[domain.Contract]
	refresher Refresher
}

type Option func(*Service)

func WithRefresher(r Refresher) Option {
	return func(s *Service) { s.refresher = r }
}

func NewService(contractsRepo contractrepo.Repository, vehiclesRepo vehiclerepo.Repository, c *cache.Store, opts ...Option) *Service {
	src := query.SourceFuncs[domain.Contract]{
		CountFunc: contractsRepo.Count,
		ListFunc: func(ctx context.Context, f domain.Filter) ([]domain.Contract, error) {
			return contractsRepo.List(ctx, f, contractrepo.Hydration{Vehicle: true})
		},
	}
	s := &Service{
		contracts: contractsRepo,
		vehicles:  vehiclesRepo,
		cache:     c,
		exec:      query.NewExecutor[domain.Contract](cache.FamilyContracts, c, src),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) refresh(ctx context.Context, ids []domain.ContractID) {
	if s.refresher != nil && len(ids) > 0 {
		s.refresher.Refresh(ctx, ids...)
	}
}

func holdingFilter() domain.Filter {
	ss := make([]string, 0, len(domain.VehicleHoldingStatuses))
	for _, s := range domain.VehicleHoldingStatuses {
		ss = append(ss, string(s))
	}
	return domain.NewFilter(domain.WithStatuses(ss...), domain.WithSort("created_at", true))
}

// Run compares contracts that hold a vehicle against rented vehicles. With
// repair it sets each drifted vehicle's status to match its contracts.
func (s *Service) Run(ctx context.Context, repair bool) (Report, error) {
	holding, err := s.exec.All(ctx, holdingFilter())
	if err != nil {
		return Report{}, err
	}
	rented, err := s.vehicles.ListByStatus(ctx, domain.VehicleStatusRented)
	if err != nil {
		return Report{}, apperr.Store("list rented vehicles", err)
	}

	byVehicle := map[domain.VehicleID][]domain.Contract{}
	for _, c := range holding {
		byVehicle[c.VehicleID] = append(byVehicle[c.VehicleID], c)
	}
	rentedSet := make(map[domain.VehicleID]bool, len(rented))
	for _, v := range rented {
		rentedSet[v.ID] = true
	}

	rep := Report{CheckedContracts: len(holding), RentedVehicles: len(rented)}

	vehicleIDs := make([]domain.VehicleID, 0, len(byVehicle))
	for id := range byVehicle {
		vehicleIDs = append(vehicleIDs, id)
	}
	sort.Slice(vehicleIDs, func(i, j int) bool { return vehicleIDs[i] < vehicleIDs[j] })

	for _, vid := range vehicleIDs {
		cs := byVehicle[vid]
		if len(cs) > 1 {
			rep.Drifts = append(rep.Drifts, Drift{
				Kind:          DriftDoubleBooked,
				VehicleID:     vid,
				VehicleStatus: vehicleStatus(cs[0]),
				ContractIDs:   contractIDs(cs),
			})
		}
		if rentedSet[vid] {
			continue
		}
		d := Drift{
			Kind:          DriftVehicleNotRented,
			VehicleID:     vid,
			VehicleStatus: vehicleStatus(cs[0]),
			ContractIDs:   contractIDs(cs),
		}
		if repair {
			s.repair(ctx, &d, domain.VehicleStatusRented)
		}
		rep.Drifts = append(rep.Drifts, d)
	}

	for _, v := range rented {
		if _, ok := byVehicle[v.ID]; ok {
			continue
		}
		d := Drift{Kind: DriftOrphanRental, VehicleID: v.ID, VehicleStatus: v.Status}
		if repair {
			s.repair(ctx, &d, domain.VehicleStatusAvailable)
		}
		rep.Drifts = append(rep.Drifts, d)
	}

	var touched []domain.ContractID
	for _, d := range rep.Drifts {
		if d.Repaired {
			rep.Repaired++
			touched = append(touched, d.ContractIDs...)
		}
	}
	if rep.Repaired > 0 {
		s.cache.InvalidateFamily(cache.FamilyContracts)
		s.refresh(ctx, touched)
	}
	logger.Info(ctx, "reconciliation finished",
		"checked_contracts", rep.CheckedContracts,
		"rented_vehicles", rep.RentedVehicles,
		"drifts", len(rep.Drifts),
		"repaired", rep.Repaired,
	)
	return rep, nil
}

func (s *Service) repair(ctx context.Context, d *Drift, status domain.VehicleStatus) {
	if err := s.vehicles.SetStatus(ctx, d.VehicleID, status); err != nil {
		d.Error = err.Error()
		logger.Error(ctx, "drift repair failed", "vehicle_id", string(d.VehicleID), "kind", string(d.Kind), "error", err)
		return
	}
	d.Repaired = true
	d.VehicleStatus = status
	logger.Warn(ctx, "drift repaired", "vehicle_id", string(d.VehicleID), "kind", string(d.Kind), "status", string(status))
}

// ExpireOverdue marks active contracts whose end date is before now's day as
// expired. The vehicle stays rented until the contract is completed.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	active := domain.NewFilter(domain.WithStatuses(string(domain.ContractStatusActive)))
	cs, err := s.exec.All(ctx, active)
	if err != nil {
		return 0, err
	}
	today := domain.Day(now)
	var (
		expired []domain.ContractID
		errs    []error
	)
	for _, c := range cs {
		if !c.EndDate.Before(today) {
			continue
		}
		c.Vehicle = nil
		c.Status = domain.ContractStatusExpired
		c.UpdatedAt = now
		if err := s.contracts.Save(ctx, c); err != nil {
			if errors.Is(err, contractrepo.ErrNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		expired = append(expired, c.ID)
	}
	n := len(expired)
	if n > 0 {
		s.cache.InvalidateFamily(cache.FamilyContracts)
		s.refresh(ctx, expired)
		logger.Info(ctx, "overdue contracts expired", "count", n)
	}
	if len(errs) > 0 {
		return n, apperr.Store("expire contracts", errors.Join(errs...))
	}
	return n, nil
}

func vehicleStatus(c domain.Contract) domain.VehicleStatus {
	if c.Vehicle == nil {
		return ""
	}
	return c.Vehicle.Status
}

func contractIDs(cs []domain.Contract) []domain.ContractID {
	out := make([]domain.ContractID, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}
