// Package contracts coordinates rental contract reads and mutations: the
// record store write, the vehicle status side effect, cache invalidation and
// the loaded working set.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/query"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/search"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/stats"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

const (
	codeNotFound           = "CONTRACT_NOT_FOUND"
	codeIDConflict         = "CONTRACT_ID_CONFLICT"
	codeNotActive          = "CONTRACT_NOT_ACTIVE"
	codeVehicleUnavailable = "VEHICLE_UNAVAILABLE"
)

type Service struct {
	contracts contractrepo.Repository
	customers customerrepo.Repository
	vehicles  vehiclerepo.Repository
	cache     *cache.Store
	clock     clock.Clock

	exec     *query.Executor[domain.Contract]
	working  *query.WorkingSet[domain.Contract]
	memo     *stats.Memo[domain.Contract, stats.ContractStats]
	searcher *search.Debouncer[domain.Contract]

	newContractID func() domain.ContractID
	suffix        func() int
}

type Option func(*serviceOptions)

type serviceOptions struct {
	searchOpts []search.Option[domain.Contract]
}

// WithSearchDelay sets the debounce delay of Search.
func WithSearchDelay(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.searchOpts = append(o.searchOpts, search.WithDelay[domain.Contract](d))
	}
}

func NewService(
	contractsRepo contractrepo.Repository,
	customersRepo customerrepo.Repository,
	vehiclesRepo vehiclerepo.Repository,
	c *cache.Store,
	clk clock.Clock,
	opts ...Option,
) *Service {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		contracts: contractsRepo,
		customers: customersRepo,
		vehicles:  vehiclesRepo,
		cache:     c,
		clock:     clk,
		working:   query.NewWorkingSet(func(c domain.Contract) string { return string(c.ID) }),
		memo:      stats.NewMemo(stats.ComputeContracts),
		newContractID: func() domain.ContractID {
			return domain.ContractID(uuid.NewString())
		},
		suffix: func() int { return rand.IntN(10000) },
	}
	s.exec = query.NewExecutor[domain.Contract](cache.FamilyContracts, c, hydratedSource{repo: contractsRepo})
	s.searcher = search.New(s.exec, s.onSearchResult, o.searchOpts...)
	return s
}

// SetNewContractIDForTest overrides contract ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewContractIDForTest(fn func() domain.ContractID) {
	if fn != nil {
		s.newContractID = fn
	}
}

// SetNumberSuffixForTest overrides the random contract number suffix.
// It should not be used in production code.
func (s *Service) SetNumberSuffixForTest(fn func() int) {
	if fn != nil {
		s.suffix = fn
	}
}

// hydratedSource reads contracts with their customer and vehicle attached.
type hydratedSource struct {
	repo contractrepo.Repository
}

func (h hydratedSource) Count(ctx context.Context, f domain.Filter) (int, error) {
	return h.repo.Count(ctx, f)
}

func (h hydratedSource) List(ctx context.Context, f domain.Filter) ([]domain.Contract, error) {
	return h.repo.List(ctx, f, contractrepo.Full)
}

// ContractNumber formats the human-readable number: RC, year, month and a
// four-digit suffix. Uniqueness is not checked.
func ContractNumber(now time.Time, suffix int) string {
	return fmt.Sprintf("RC%04d%02d%04d", now.Year(), int(now.Month()), suffix%10000)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Contract, error) {
	if err := validateCreate(in); err != nil {
		logger.Warn(ctx, "contract create rejected", "error", err)
		return domain.Contract{}, err
	}

	cust, err := s.customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		if errors.Is(err, customerrepo.ErrNotFound) {
			return domain.Contract{}, apperr.Validation("invalid customer", "customerId", "customer does not exist")
		}
		return domain.Contract{}, s.fail(ctx, "create contract", apperr.Store("load customer", err))
	}
	veh, err := s.vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return domain.Contract{}, apperr.Validation("invalid vehicle", "vehicleId", "vehicle does not exist")
		}
		return domain.Contract{}, s.fail(ctx, "create contract", apperr.Store("load vehicle", err))
	}

	now := s.clock.Now()
	c := domain.Contract{
		ID:             s.newContractID(),
		ContractNumber: ContractNumber(now, s.suffix()),
		CustomerID:     in.CustomerID,
		VehicleID:      in.VehicleID,
		StartDate:      domain.Day(in.StartDate),
		EndDate:        domain.Day(in.EndDate),
		DailyRate:      in.DailyRate,
		TotalAmount:    in.TotalAmount,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  in.PaymentStatus,
		Status:         in.Status,
		PickupMileage:  in.PickupMileage,
		FuelLevelOut:   in.FuelLevelOut,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.DepositAmount != nil {
		c.DepositAmount = *in.DepositAmount
	}
	c.PaidAmount = c.DepositAmount
	c.RemainingAmount = c.TotalAmount - c.PaidAmount
	if c.PaymentMethod == "" {
		c.PaymentMethod = domain.PaymentMethodCash
	}
	if c.PaymentStatus == "" {
		c.PaymentStatus = domain.PaymentStatusFor(c.PaidAmount, c.RemainingAmount)
	}
	if c.Status == "" {
		c.Status = domain.ContractStatusActive
	}

	if c.Status.HoldsVehicle() && veh.Status != domain.VehicleStatusAvailable {
		err := &apperr.Error{
			Kind:    apperr.KindConflict,
			Status:  409,
			Code:    codeVehicleUnavailable,
			Message: "vehicle is not available",
			Details: map[string]any{"vehicleId": string(veh.ID), "vehicleStatus": string(veh.Status)},
		}
		logger.Warn(ctx, "contract create rejected", "error", err)
		return domain.Contract{}, err
	}

	if err := s.contracts.Create(ctx, c); err != nil {
		if errors.Is(err, contractrepo.ErrAlreadyExists) {
			return domain.Contract{}, s.fail(ctx, "create contract", apperr.Conflict(codeIDConflict, "contract id conflict"))
		}
		return domain.Contract{}, s.fail(ctx, "create contract", apperr.Store("insert contract", err))
	}

	c.Customer = cust.Ref()
	c.Vehicle = veh.Ref()

	var sideErr error
	if c.Status.HoldsVehicle() {
		sideErr = s.setVehicleStatus(ctx, &c, domain.VehicleStatusRented)
	}
	s.applied(ctx, c)
	logger.Info(ctx, "contract created",
		"contract_id", string(c.ID),
		"contract_number", c.ContractNumber,
		"vehicle_id", string(c.VehicleID),
	)
	return c, sideErr
}

func (s *Service) Update(ctx context.Context, id domain.ContractID, in UpdateInput) (domain.Contract, error) {
	if err := validateUpdate(in); err != nil {
		logger.Warn(ctx, "contract update rejected", "contract_id", string(id), "error", err)
		return domain.Contract{}, err
	}

	cur, err := s.load(ctx, id)
	if err != nil {
		return domain.Contract{}, s.fail(ctx, "update contract", err)
	}

	c := cur.Clone()
	if in.StartDate.HasValue() {
		c.StartDate = domain.Day(in.StartDate.Value())
	}
	if in.EndDate.HasValue() {
		c.EndDate = domain.Day(in.EndDate.Value())
	}
	c.DailyRate = in.DailyRate.Or(c.DailyRate)
	c.TotalAmount = in.TotalAmount.Or(c.TotalAmount)
	c.PaidAmount = in.PaidAmount.Or(c.PaidAmount)
	c.PaymentMethod = in.PaymentMethod.Or(c.PaymentMethod)
	c.Status = in.Status.Or(c.Status)
	c.PickupMileage = in.PickupMileage.Ptr(c.PickupMileage)
	c.FuelLevelOut = in.FuelLevelOut.Ptr(c.FuelLevelOut)
	c.Notes = in.Notes.Ptr(c.Notes)

	if c.EndDate.Before(c.StartDate) {
		return domain.Contract{}, apperr.Validation("invalid dates", "endDate", "must not be before startDate")
	}
	c.RemainingAmount = c.TotalAmount + c.AdditionalCharges - c.PaidAmount
	if c.RemainingAmount < 0 {
		return domain.Contract{}, apperr.Validation("invalid amounts", "paidAmount", "must not exceed the amount due")
	}
	amountsChanged := c.TotalAmount != cur.TotalAmount || c.PaidAmount != cur.PaidAmount
	switch {
	case in.PaymentStatus.HasValue():
		c.PaymentStatus = in.PaymentStatus.Value()
	case amountsChanged:
		c.PaymentStatus = domain.PaymentStatusFor(c.PaidAmount, c.RemainingAmount)
	}

	acquires := !cur.Status.HoldsVehicle() && c.Status.HoldsVehicle()
	releases := cur.Status.HoldsVehicle() && !c.Status.HoldsVehicle()
	if acquires {
		veh, err := s.vehicles.GetByID(ctx, c.VehicleID)
		if err != nil {
			if errors.Is(err, vehiclerepo.ErrNotFound) {
				return domain.Contract{}, apperr.Validation("invalid vehicle", "vehicleId", "vehicle does not exist")
			}
			return domain.Contract{}, s.fail(ctx, "update contract", apperr.Store("load vehicle", err))
		}
		if veh.Status != domain.VehicleStatusAvailable {
			return domain.Contract{}, apperr.Conflict(codeVehicleUnavailable, "vehicle is not available")
		}
	}

	c.UpdatedAt = s.clock.Now()
	if err := s.contracts.Save(ctx, c); err != nil {
		if errors.Is(err, contractrepo.ErrNotFound) {
			return domain.Contract{}, s.fail(ctx, "update contract", apperr.NotFound(codeNotFound, "contract not found"))
		}
		return domain.Contract{}, s.fail(ctx, "update contract", apperr.Store("save contract", err))
	}

	var sideErr error
	switch {
	case acquires:
		sideErr = s.setVehicleStatus(ctx, &c, domain.VehicleStatusRented)
	case releases:
		sideErr = s.setVehicleStatus(ctx, &c, domain.VehicleStatusAvailable)
	}
	s.applied(ctx, c)
	logger.Info(ctx, "contract updated", "contract_id", string(c.ID), "status", string(c.Status))
	return c, sideErr
}

// Complete records the vehicle return, closes the contract and releases the vehicle.
func (s *Service) Complete(ctx context.Context, id domain.ContractID, in CompleteInput) (domain.Contract, error) {
	if err := validateComplete(in); err != nil {
		logger.Warn(ctx, "contract completion rejected", "contract_id", string(id), "error", err)
		return domain.Contract{}, err
	}

	cur, err := s.load(ctx, id)
	if err != nil {
		return domain.Contract{}, s.fail(ctx, "complete contract", err)
	}
	if cur.Status != domain.ContractStatusActive && cur.Status != domain.ContractStatusExpired {
		err := &apperr.Error{
			Kind:    apperr.KindConflict,
			Status:  409,
			Code:    codeNotActive,
			Message: "only active or expired contracts can be completed",
			Details: map[string]any{"status": string(cur.Status)},
		}
		return domain.Contract{}, s.fail(ctx, "complete contract", err)
	}
	if in.ReturnMileage != nil && cur.PickupMileage != nil && *in.ReturnMileage < *cur.PickupMileage {
		return domain.Contract{}, apperr.Validation("invalid mileage", "returnMileage", "must not be below pickup mileage")
	}

	now := s.clock.Now()
	c := cur.Clone()
	c.ReturnMileage = in.ReturnMileage
	c.FuelLevelIn = in.FuelLevelIn
	c.Charges = in.Charges
	c.AdditionalCharges = in.Charges.Total()
	c.PaidAmount += in.Payment
	c.RemainingAmount = max(0, c.TotalAmount+c.AdditionalCharges-c.PaidAmount)
	c.PaymentStatus = domain.PaymentStatusFor(c.PaidAmount, c.RemainingAmount)
	c.Status = domain.ContractStatusCompleted
	c.ReturnedAt = &now
	if in.Notes != nil {
		c.Notes = in.Notes
	}
	c.UpdatedAt = now

	if err := s.contracts.Save(ctx, c); err != nil {
		if errors.Is(err, contractrepo.ErrNotFound) {
			return domain.Contract{}, s.fail(ctx, "complete contract", apperr.NotFound(codeNotFound, "contract not found"))
		}
		return domain.Contract{}, s.fail(ctx, "complete contract", apperr.Store("save contract", err))
	}

	sideErr := s.setVehicleStatus(ctx, &c, domain.VehicleStatusAvailable)
	if sideErr == nil && c.ReturnMileage != nil {
		if err := s.vehicles.RecordMileage(ctx, c.VehicleID, *c.ReturnMileage); err != nil {
			sideErr = s.sideEffectFailed(ctx, c, "vehicle mileage update failed", err)
		}
	}
	s.applied(ctx, c)
	logger.Info(ctx, "contract completed",
		"contract_id", string(c.ID),
		"additional_charges", int64(c.AdditionalCharges),
		"remaining_amount", int64(c.RemainingAmount),
	)
	return c, sideErr
}

// Delete removes a contract. A contract that held its vehicle releases it.
func (s *Service) Delete(ctx context.Context, id domain.ContractID) error {
	cur, err := s.load(ctx, id)
	if err != nil {
		return s.fail(ctx, "delete contract", err)
	}
	if err := s.contracts.Delete(ctx, id); err != nil {
		if errors.Is(err, contractrepo.ErrNotFound) {
			return s.fail(ctx, "delete contract", apperr.NotFound(codeNotFound, "contract not found"))
		}
		return s.fail(ctx, "delete contract", apperr.Store("delete contract", err))
	}

	var sideErr error
	if cur.Status.HoldsVehicle() {
		sideErr = s.setVehicleStatus(ctx, &cur, domain.VehicleStatusAvailable)
	}
	s.cache.InvalidateFamily(cache.FamilyContracts)
	s.working.Remove(string(id))
	logger.Info(ctx, "contract deleted", "contract_id", string(id))
	return sideErr
}

func (s *Service) load(ctx context.Context, id domain.ContractID) (domain.Contract, error) {
	c, err := s.contracts.GetByID(ctx, id, contractrepo.Full)
	if err != nil {
		if errors.Is(err, contractrepo.ErrNotFound) {
			return domain.Contract{}, apperr.NotFound(codeNotFound, "contract not found")
		}
		return domain.Contract{}, apperr.Store("load contract", err)
	}
	return c, nil
}

// setVehicleStatus runs the cross-entity side effect. The contract is already
// persisted, so a failure is reported, never rolled back.
func (s *Service) setVehicleStatus(ctx context.Context, c *domain.Contract, status domain.VehicleStatus) error {
	if err := s.vehicles.SetStatus(ctx, c.VehicleID, status); err != nil {
		return s.sideEffectFailed(ctx, *c, "vehicle status update failed", err, "vehicleStatus", string(status))
	}
	if c.Vehicle != nil {
		c.Vehicle.Status = status
	}
	return nil
}

func (s *Service) sideEffectFailed(ctx context.Context, c domain.Contract, msg string, err error, kv ...string) error {
	details := map[string]any{
		"contractId": string(c.ID),
		"vehicleId":  string(c.VehicleID),
	}
	for i := 0; i+1 < len(kv); i += 2 {
		details[kv[i]] = kv[i+1]
	}
	logger.Error(ctx, msg,
		"contract_id", string(c.ID),
		"vehicle_id", string(c.VehicleID),
		"error", err,
	)
	return apperr.SideEffect(msg, details, err)
}

// applied runs after a store-confirmed write.
func (s *Service) applied(_ context.Context, c domain.Contract) {
	s.cache.InvalidateFamily(cache.FamilyContracts)
	s.working.Upsert(c)
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	if ae, ok := apperr.As(err); ok && ae.Kind != apperr.KindStoreFailure {
		logger.Warn(ctx, op+" failed", "code", ae.Code, "error", err)
	} else {
		logger.Error(ctx, op+" failed", "error", err)
	}
	return err
}
