package reconcile_test

import (
	"context"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/clock"
	memcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/contractrepo"
	memcustomerrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/customerrepo"
	memidempotency "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/idempotency"
	memvehiclerepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/vehiclerepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/contracts"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/reconcile"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	portcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
)

var now = time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *reconcile.Service
	contracts *memcontractrepo.Repo
	vehicles  *memvehiclerepo.Repo
	cache     *cache.Store
	clock     *memclock.ManualClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := memclock.NewManualClock(now)
	vehicles := memvehiclerepo.NewRepo()
	contracts := memcontractrepo.NewRepo(memcustomerrepo.NewRepo(), vehicles)
	c := cache.New(clk)
	return fixture{svc: reconcile.NewService(contracts, vehicles, c), contracts: contracts, vehicles: vehicles, cache: c, clock: clk}
}

func (f fixture) vehicle(t *testing.T, id domain.VehicleID, status domain.VehicleStatus) {
	t.Helper()
	if err := f.vehicles.Create(context.Background(), domain.Vehicle{ID: id, PlateNumber: string(id), Status: status, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
}

func (f fixture) contract(t *testing.T, id domain.ContractID, vehicle domain.VehicleID, status domain.ContractStatus, end time.Time) {
	t.Helper()
	if err := f.contracts.Create(context.Background(), domain.Contract{
		ID:          id,
		CustomerID:  "cu1",
		VehicleID:   vehicle,
		StartDate:   end.AddDate(0, 0, -5),
		EndDate:     end,
		TotalAmount: 1000,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("seed contract: %v", err)
	}
}

func TestRun_ReportsBothDriftKinds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	end := now.AddDate(0, 0, 3)
	f.vehicle(t, "v-ok", domain.VehicleStatusRented)
	f.contract(t, "c-ok", "v-ok", domain.ContractStatusActive, end)
	f.vehicle(t, "v-drift", domain.VehicleStatusAvailable)
	f.contract(t, "c-drift", "v-drift", domain.ContractStatusActive, end)
	f.vehicle(t, "v-orphan", domain.VehicleStatusRented)
	f.contract(t, "c-done", "v-orphan", domain.ContractStatusCompleted, end)

	rep, err := f.svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.CheckedContracts != 2 || rep.RentedVehicles != 2 || len(rep.Drifts) != 2 || rep.Repaired != 0 {
		t.Fatalf("report=%+v", rep)
	}
	if rep.Drifts[0].Kind != reconcile.DriftVehicleNotRented || rep.Drifts[0].VehicleID != "v-drift" {
		t.Fatalf("drift[0]=%+v", rep.Drifts[0])
	}
	if rep.Drifts[1].Kind != reconcile.DriftOrphanRental || rep.Drifts[1].VehicleID != "v-orphan" {
		t.Fatalf("drift[1]=%+v", rep.Drifts[1])
	}
	v, _ := f.vehicles.GetByID(context.Background(), "v-drift")
	if v.Status != domain.VehicleStatusAvailable {
		t.Fatalf("report-only run changed vehicle status to %s", v.Status)
	}
}

func TestRun_RepairsDrift(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	end := now.AddDate(0, 0, 3)
	f.vehicle(t, "v-drift", domain.VehicleStatusAvailable)
	f.contract(t, "c-drift", "v-drift", domain.ContractStatusActive, end)
	f.vehicle(t, "v-orphan", domain.VehicleStatusRented)
	f.cache.Put(cache.FamilyContracts, "k", 1)

	rep, err := f.svc.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Repaired != 2 {
		t.Fatalf("Repaired=%d, want 2 (%+v)", rep.Repaired, rep.Drifts)
	}
	if v, _ := f.vehicles.GetByID(context.Background(), "v-drift"); v.Status != domain.VehicleStatusRented {
		t.Fatalf("v-drift=%s, want rented", v.Status)
	}
	if v, _ := f.vehicles.GetByID(context.Background(), "v-orphan"); v.Status != domain.VehicleStatusAvailable {
		t.Fatalf("v-orphan=%s, want available", v.Status)
	}
	if _, ok := f.cache.Get(cache.FamilyContracts, "k"); ok {
		t.Fatalf("contracts cache survived a repair")
	}

	again, err := f.svc.Run(context.Background(), false)
	if err != nil || len(again.Drifts) != 0 {
		t.Fatalf("second run drifts=%+v err=%v", again.Drifts, err)
	}
}

func TestRun_ReportsDoubleBooking(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	end := now.AddDate(0, 0, 3)
	f.vehicle(t, "v1", domain.VehicleStatusRented)
	f.contract(t, "c1", "v1", domain.ContractStatusActive, end)
	f.contract(t, "c2", "v1", domain.ContractStatusExpired, end)

	rep, err := f.svc.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Drifts) != 1 || rep.Drifts[0].Kind != reconcile.DriftDoubleBooked || len(rep.Drifts[0].ContractIDs) != 2 || rep.Drifts[0].Repaired {
		t.Fatalf("drifts=%+v", rep.Drifts)
	}
}

func TestExpireOverdue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.vehicle(t, "v1", domain.VehicleStatusRented)
	f.vehicle(t, "v2", domain.VehicleStatusRented)
	f.contract(t, "c-overdue", "v1", domain.ContractStatusActive, now.AddDate(0, 0, -1))
	f.contract(t, "c-today", "v2", domain.ContractStatusActive, domain.Day(now))

	n, err := f.svc.ExpireOverdue(context.Background(), now)
	if err != nil || n != 1 {
		t.Fatalf("ExpireOverdue=%d err=%v, want 1", n, err)
	}
	c, _ := f.contracts.GetByID(context.Background(), "c-overdue", portcontractrepo.Hydration{})
	if c.Status != domain.ContractStatusExpired || !c.UpdatedAt.Equal(now) {
		t.Fatalf("c-overdue=%s updated=%v", c.Status, c.UpdatedAt)
	}
	if c, _ := f.contracts.GetByID(context.Background(), "c-today", portcontractrepo.Hydration{}); c.Status != domain.ContractStatusActive {
		t.Fatalf("c-today=%s, want still active", c.Status)
	}
	// Expired contracts still hold their vehicle, so no drift appears.
	if rep, _ := f.svc.Run(context.Background(), false); len(rep.Drifts) != 0 {
		t.Fatalf("drifts after expiry=%+v", rep.Drifts)
	}
}

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s, err := reconcile.NewScheduler(f.svc, f.cache, f.clock, reconcile.Schedules{
		Reconcile:  "@every 10m",
		Expire:     "5 0 * * *",
		CacheSweep: "",
		// Without a store the purge spec is ignored.
		IdempotencyPurge:     "@every 1h",
		IdempotencyRetention: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Entries() != 2 {
		t.Fatalf("Entries=%d, want 2", s.Entries())
	}
	s.Start()
	s.Stop(context.Background())

	s, err = reconcile.NewScheduler(f.svc, f.cache, f.clock, reconcile.Schedules{
		IdempotencyPurge:     "@every 1h",
		IdempotencyRetention: time.Hour,
		Idempotency:          memidempotency.NewStore(),
	})
	if err != nil {
		t.Fatalf("NewScheduler with purge: %v", err)
	}
	if s.Entries() != 1 {
		t.Fatalf("Entries=%d, want 1", s.Entries())
	}
	s.Start()
	s.Stop(context.Background())

	if _, err := reconcile.NewScheduler(f.svc, f.cache, f.clock, reconcile.Schedules{Reconcile: "not a spec"}); err == nil {
		t.Fatalf("invalid spec accepted")
	}
}

type recordingRefresher struct {
	ids []domain.ContractID
}

func (r *recordingRefresher) Refresh(_ context.Context, ids ...domain.ContractID) {
	r.ids = append(r.ids, ids...)
}

func TestRun_RefreshesContractsOfRepairedVehicles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := &recordingRefresher{}
	svc := reconcile.NewService(f.contracts, f.vehicles, f.cache, reconcile.WithRefresher(rec))
	f.vehicle(t, "v1", domain.VehicleStatusAvailable)
	f.contract(t, "c1", "v1", domain.ContractStatusActive, now.AddDate(0, 0, 3))

	if _, err := svc.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.ids) != 0 {
		t.Fatalf("report-only run refreshed %v", rec.ids)
	}
	if _, err := svc.Run(context.Background(), true); err != nil {
		t.Fatalf("Run repair: %v", err)
	}
	if len(rec.ids) != 1 || rec.ids[0] != "c1" {
		t.Fatalf("refreshed=%v, want [c1]", rec.ids)
	}
}

func TestExpireOverdue_UpdatesContractStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerRepo := memcustomerrepo.NewRepo()
	contractSvc := contracts.NewService(f.contracts, customerRepo, f.vehicles, f.cache, f.clock)
	t.Cleanup(contractSvc.Close)
	svc := reconcile.NewService(f.contracts, f.vehicles, f.cache, reconcile.WithRefresher(contractSvc))

	f.vehicle(t, "v1", domain.VehicleStatusRented)
	f.contract(t, "c-overdue", "v1", domain.ContractStatusActive, now.AddDate(0, 0, -1))

	before, err := contractSvc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if before.Active != 1 {
		t.Fatalf("active=%d, want 1", before.Active)
	}

	if n, err := svc.ExpireOverdue(context.Background(), now); err != nil || n != 1 {
		t.Fatalf("ExpireOverdue=%d err=%v, want 1", n, err)
	}
	after, err := contractSvc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if after.Active != 0 || after.ByStatus[domain.ContractStatusExpired] != 1 {
		t.Fatalf("stats=%+v, want the contract counted as expired", after)
	}
}
