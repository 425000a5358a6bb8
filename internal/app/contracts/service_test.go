package contracts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/clock"
	memcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/contractrepo"
	memcustomerrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/customerrepo"
	memvehiclerepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/vehiclerepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/contracts"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/patch"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	portcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
)

type fixture struct {
	svc       *contracts.Service
	contracts *memcontractrepo.Repo
	customers *memcustomerrepo.Repo
	vehicles  *memvehiclerepo.Repo
	cache     *cache.Store
	clock     *memclock.ManualClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC))
	customers := memcustomerrepo.NewRepo()
	vehicles := memvehiclerepo.NewRepo()
	contractsRepo := memcontractrepo.NewRepo(customers, vehicles)
	c := cache.New(clk)
	svc := contracts.NewService(contractsRepo, customers, vehicles, c, clk)
	t.Cleanup(svc.Close)
	return fixture{svc: svc, contracts: contractsRepo, customers: customers, vehicles: vehicles, cache: c, clock: clk}
}

func (f fixture) seedCustomer(t *testing.T, id domain.CustomerID, name string) {
	t.Helper()
	now := f.clock.Now()
	if err := f.customers.Create(context.Background(), domain.Customer{
		ID:        id,
		FullName:  name,
		Phone:     "+15550100",
		Status:    domain.CustomerStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func (f fixture) seedVehicle(t *testing.T, id domain.VehicleID, status domain.VehicleStatus) {
	t.Helper()
	now := f.clock.Now()
	if err := f.vehicles.Create(context.Background(), domain.Vehicle{
		ID:          id,
		PlateNumber: "PLT-" + string(id),
		Make:        "Toyota",
		Model:       "Corolla",
		Status:      status,
		Mileage:     1000,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
}

func money(v domain.Money) *domain.Money { return &v }

func draft(customer domain.CustomerID, vehicle domain.VehicleID) contracts.CreateInput {
	return contracts.CreateInput{
		CustomerID:    customer,
		VehicleID:     vehicle,
		StartDate:     time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC),
		DailyRate:     500,
		TotalAmount:   3000,
		DepositAmount: money(500),
	}
}

func TestService_Create_ThenFetchWithoutBypass(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana Whitfield")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	f.svc.SetNewContractIDForTest(func() domain.ContractID { return "c1" })
	f.svc.SetNumberSuffixForTest(func() int { return 42 })

	active := domain.NewFilter(domain.WithStatuses(string(domain.ContractStatusActive)))
	before, err := f.svc.List(context.Background(), active, true)
	if err != nil || before.Total != 0 {
		t.Fatalf("List before: total=%d err=%v", before.Total, err)
	}

	c, err := f.svc.Create(context.Background(), draft("cu1", "v1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.PaidAmount != 500 || c.RemainingAmount != 2500 || c.RemainingAmount != c.TotalAmount-c.PaidAmount {
		t.Fatalf("amounts paid=%d remaining=%d", c.PaidAmount, c.RemainingAmount)
	}
	if c.Status != domain.ContractStatusActive || c.PaymentStatus != domain.PaymentStatusPartial || c.PaymentMethod != domain.PaymentMethodCash {
		t.Fatalf("defaults status=%s payment=%s method=%s", c.Status, c.PaymentStatus, c.PaymentMethod)
	}
	if c.ContractNumber != "RC2026040042" {
		t.Fatalf("ContractNumber=%s", c.ContractNumber)
	}
	if c.Customer == nil || c.Customer.FullName != "Dana Whitfield" || c.Vehicle == nil || c.Vehicle.Status != domain.VehicleStatusRented {
		t.Fatalf("refs customer=%+v vehicle=%+v", c.Customer, c.Vehicle)
	}

	v, _ := f.vehicles.GetByID(context.Background(), "v1")
	if v.Status != domain.VehicleStatusRented {
		t.Fatalf("vehicle status=%s, want rented", v.Status)
	}

	after, err := f.svc.List(context.Background(), active, true)
	if err != nil {
		t.Fatalf("List after: %v", err)
	}
	if after.Total != 1 || len(after.Items) != 1 || after.Items[0].ID != "c1" {
		t.Fatalf("List after create=%+v, want the new contract without a cache bypass", after)
	}
}

func TestService_Create_InvalidatesStalePage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana Whitfield")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	f.seedVehicle(t, "v2", domain.VehicleStatusAvailable)

	all := domain.NewFilter(domain.WithPage(1, 10))
	if _, err := f.svc.Create(context.Background(), draft("cu1", "v1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	first, err := f.svc.List(context.Background(), all, true)
	if err != nil || first.Total != 1 {
		t.Fatalf("List: total=%d err=%v", first.Total, err)
	}

	f.clock.Advance(time.Minute)
	second, err := f.svc.Create(context.Background(), draft("cu1", "v2"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	again, err := f.svc.List(context.Background(), all, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if again.Total != 2 || again.Items[0].ID != second.ID {
		t.Fatalf("List after create=%+v, want newest contract first", again)
	}
}

func TestService_Create_ValidationHappensBeforeStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cases := map[string]func(*contracts.CreateInput){
		"missing customer":  func(in *contracts.CreateInput) { in.CustomerID = "" },
		"end before start":  func(in *contracts.CreateInput) { in.EndDate = in.StartDate.AddDate(0, 0, -1) },
		"zero total":        func(in *contracts.CreateInput) { in.TotalAmount = 0 },
		"deposit too large": func(in *contracts.CreateInput) { in.DepositAmount = money(3001) },
		"bad method":        func(in *contracts.CreateInput) { in.PaymentMethod = "barter" },
		"bad fuel":          func(in *contracts.CreateInput) { v := 120; in.FuelLevelOut = &v },
	}
	for name, mutate := range cases {
		in := draft("cu-missing", "v-missing")
		mutate(&in)
		_, err := f.svc.Create(context.Background(), in)
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("%s: err=%v, want validation", name, err)
		}
	}
	if n, _ := f.contracts.Count(context.Background(), domain.NewFilter()); n != 0 {
		t.Fatalf("contracts stored=%d after rejected drafts", n)
	}

	// Well-formed draft with unknown references is still a validation failure.
	_, err := f.svc.Create(context.Background(), draft("cu-missing", "v-missing"))
	ae, ok := apperr.As(err)
	if !ok || ae.Status != 422 || ae.Details["customerId"] == nil {
		t.Fatalf("err=%v, want 422 on customerId", err)
	}
}

func TestService_Create_RefusesRentedVehicle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)

	if _, err := f.svc.Create(context.Background(), draft("cu1", "v1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := f.svc.Create(context.Background(), draft("cu1", "v1"))
	ae, ok := apperr.As(err)
	if !ok || ae.Status != 409 || ae.Code != "VEHICLE_UNAVAILABLE" {
		t.Fatalf("err=%v, want VEHICLE_UNAVAILABLE", err)
	}
	if n, _ := f.contracts.Count(context.Background(), domain.NewFilter()); n != 1 {
		t.Fatalf("contracts stored=%d, want 1", n)
	}
}

func TestService_Create_SideEffectFailureKeepsContract(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	f.vehicles.FailSetStatus = errors.New("fleet service unavailable")

	c, err := f.svc.Create(context.Background(), draft("cu1", "v1"))
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindSideEffectFailure {
		t.Fatalf("err=%v, want side effect failure", err)
	}
	if c.ID == "" {
		t.Fatalf("persisted contract not returned with the side effect failure")
	}
	if _, err := f.contracts.GetByID(context.Background(), c.ID, portcontractrepo.Hydration{}); err != nil {
		t.Fatalf("contract not persisted: %v", err)
	}
	v, _ := f.vehicles.GetByID(context.Background(), "v1")
	if v.Status != domain.VehicleStatusAvailable {
		t.Fatalf("vehicle status=%s, want untouched", v.Status)
	}
	if items, _ := f.svc.Working(); len(items) != 1 || items[0].ID != c.ID {
		t.Fatalf("working set=%v, want the persisted contract", items)
	}
}

func TestService_StoreFailureLeavesWorkingSetUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	f.svc.SetNewContractIDForTest(func() domain.ContractID { return "dup" })

	if _, err := f.svc.Create(context.Background(), draft("cu1", "v1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, rev := f.svc.Working()

	f.seedVehicle(t, "v2", domain.VehicleStatusAvailable)
	_, err := f.svc.Create(context.Background(), draft("cu1", "v2"))
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v, want id conflict", err)
	}
	if _, after := f.svc.Working(); after != rev {
		t.Fatalf("working set revision moved on a rejected write")
	}
	v, _ := f.vehicles.GetByID(context.Background(), "v2")
	if v.Status != domain.VehicleStatusAvailable {
		t.Fatalf("vehicle v2 status=%s after aborted create", v.Status)
	}
}

func TestService_Update_RecomputesRemaining(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	c, err := f.svc.Create(context.Background(), draft("cu1", "v1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := f.svc.Update(context.Background(), c.ID, contracts.UpdateInput{
		PaidAmount: patch.Some(domain.Money(3000)),
		Notes:      patch.Some("paid in full"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.RemainingAmount != 0 || got.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("remaining=%d payment=%s", got.RemainingAmount, got.PaymentStatus)
	}
	if got.Notes == nil || *got.Notes != "paid in full" || got.Customer == nil {
		t.Fatalf("merged record=%+v", got)
	}

	_, err = f.svc.Update(context.Background(), c.ID, contracts.UpdateInput{TotalAmount: patch.Some(domain.Money(1000))})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err=%v, want validation for negative remaining", err)
	}

	cleared, err := f.svc.Update(context.Background(), c.ID, contracts.UpdateInput{Notes: patch.Null[string]()})
	if err != nil || cleared.Notes != nil {
		t.Fatalf("clear notes: notes=%v err=%v", cleared.Notes, err)
	}

	if _, err := f.svc.Update(context.Background(), "missing", contracts.UpdateInput{}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v, want not found", err)
	}
}

func TestService_Update_CancelReleasesVehicle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	c, _ := f.svc.Create(context.Background(), draft("cu1", "v1"))

	got, err := f.svc.Update(context.Background(), c.ID, contracts.UpdateInput{Status: patch.Some(domain.ContractStatusCancelled)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	v, _ := f.vehicles.GetByID(context.Background(), "v1")
	if got.Status != domain.ContractStatusCancelled || v.Status != domain.VehicleStatusAvailable {
		t.Fatalf("status=%s vehicle=%s", got.Status, v.Status)
	}

	if _, err := f.svc.Update(context.Background(), c.ID, contracts.UpdateInput{Status: patch.Some(domain.ContractStatusCompleted)}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err=%v, want completion through Complete only", err)
	}
}

func TestService_Update_ReactivationWithMissingVehicleIsValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	now := f.clock.Now()
	if err := f.contracts.Create(context.Background(), domain.Contract{
		ID:          "c-gone",
		CustomerID:  "cu1",
		VehicleID:   "v-missing",
		StartDate:   domain.Day(now),
		EndDate:     domain.Day(now.AddDate(0, 0, 2)),
		TotalAmount: 1000,
		Status:      domain.ContractStatusCancelled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("seed contract: %v", err)
	}

	_, err := f.svc.Update(context.Background(), "c-gone", contracts.UpdateInput{Status: patch.Some(domain.ContractStatusActive)})
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindValidation || ae.Details["vehicleId"] == nil {
		t.Fatalf("err=%v, want validation on vehicleId", err)
	}
	if got, _ := f.contracts.GetByID(context.Background(), "c-gone", portcontractrepo.Hydration{}); got.Status != domain.ContractStatusCancelled {
		t.Fatalf("status=%s, want unchanged", got.Status)
	}
}

func TestService_Complete_ChargesAndRelease(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	pickup := 1000
	in := draft("cu1", "v1")
	in.PickupMileage = &pickup
	c, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.clock.Advance(6 * 24 * time.Hour)
	ret, fuel := 1450, 80
	got, err := f.svc.Complete(context.Background(), c.ID, contracts.CompleteInput{
		ReturnMileage: &ret,
		FuelLevelIn:   &fuel,
		Charges:       domain.ReturnCharges{Damage: 200, Cleaning: 50, Late: 100, Fuel: 30},
		Payment:       2000,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.AdditionalCharges != 380 {
		t.Fatalf("AdditionalCharges=%d, want 380", got.AdditionalCharges)
	}
	// 3000 + 380 - (500 + 2000)
	if got.PaidAmount != 2500 || got.RemainingAmount != 880 || got.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("paid=%d remaining=%d payment=%s", got.PaidAmount, got.RemainingAmount, got.PaymentStatus)
	}
	if got.Status != domain.ContractStatusCompleted || got.ReturnedAt == nil || !got.ReturnedAt.Equal(f.clock.Now()) {
		t.Fatalf("status=%s returnedAt=%v", got.Status, got.ReturnedAt)
	}
	v, _ := f.vehicles.GetByID(context.Background(), "v1")
	if v.Status != domain.VehicleStatusAvailable || v.Mileage != 1450 {
		t.Fatalf("vehicle=%+v, want available at 1450", v)
	}

	_, err = f.svc.Complete(context.Background(), c.ID, contracts.CompleteInput{})
	if ae, ok := apperr.As(err); !ok || ae.Code != "CONTRACT_NOT_ACTIVE" {
		t.Fatalf("second Complete err=%v, want CONTRACT_NOT_ACTIVE", err)
	}
}

func TestService_Complete_OverpaymentClampsRemaining(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	c, _ := f.svc.Create(context.Background(), draft("cu1", "v1"))

	got, err := f.svc.Complete(context.Background(), c.ID, contracts.CompleteInput{Payment: 5000})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.RemainingAmount != 0 || got.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("remaining=%d payment=%s", got.RemainingAmount, got.PaymentStatus)
	}
}

func TestService_Delete_ReleasesHeldVehicle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	c, _ := f.svc.Create(context.Background(), draft("cu1", "v1"))

	if err := f.svc.Delete(context.Background(), c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	v, _ := f.vehicles.GetByID(context.Background(), "v1")
	if v.Status != domain.VehicleStatusAvailable {
		t.Fatalf("vehicle status=%s after delete", v.Status)
	}
	if items, _ := f.svc.Working(); len(items) != 0 {
		t.Fatalf("working set=%v after delete", items)
	}
	if err := f.svc.Delete(context.Background(), c.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("second Delete err=%v, want not found", err)
	}
}

func TestService_SearchReplacesWorkingSet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana Whitfield")
	f.seedCustomer(t, "cu2", "Omar Haddad")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)
	f.seedVehicle(t, "v2", domain.VehicleStatusAvailable)
	if _, err := f.svc.Create(context.Background(), draft("cu1", "v1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), draft("cu2", "v2")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, text := range []string{"o", "om", "omar"} {
		f.svc.Search(context.Background(), text, domain.NewFilter(domain.WithPage(3, 10)))
	}
	f.svc.FlushSearch()

	items, _ := f.svc.Working()
	if len(items) != 1 || items[0].CustomerID != "cu2" {
		t.Fatalf("working set=%v, want only Omar's contract", items)
	}
}

func TestService_Stats_FollowWorkingSet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedCustomer(t, "cu1", "Dana")
	f.seedVehicle(t, "v1", domain.VehicleStatusAvailable)

	empty, err := f.svc.Stats(context.Background())
	if err != nil || empty.Total != 0 || empty.CollectionRate != 0 {
		t.Fatalf("empty stats=%+v err=%v", empty, err)
	}

	if _, err := f.svc.Create(context.Background(), draft("cu1", "v1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	s, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s.Total != 1 || s.Active != 1 || s.TotalRevenue != 3000 || s.Outstanding != 2500 || s.ThisMonthCount != 1 {
		t.Fatalf("stats=%+v", s)
	}
}
