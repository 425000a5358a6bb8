package contracttest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
	idempotencyport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

type CleanupFunc = func()

type CustomerRepoFactory func(t *testing.T) (customerrepo.Repository, CleanupFunc)
type VehicleRepoFactory func(t *testing.T) (vehiclerepo.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// Stores groups the three record stores a contract suite needs; contract joins
// must resolve against the customer and vehicle stores in the same group.
type Stores struct {
	Customers customerrepo.Repository
	Vehicles  vehiclerepo.Repository
	Contracts contractrepo.Repository
}

type StoresFactory func(t *testing.T) (Stores, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	key := idempotencyport.Key("k-" + uuid.NewString())
	claim := idempotencyport.Fingerprint{Key: key, Method: "POST", Route: "/contracts"}
	resp := claim
	resp.BodyHash = "sha-of-body"

	if _, ok, err := store.Get(ctx, resp); err != nil || ok {
		t.Fatalf("Get unknown fingerprint ok=%v err=%v, want miss", ok, err)
	}

	// Claims and responses for the same key are distinct rows.
	claimedAt := time.Unix(100, 0).UTC()
	if err := store.Put(ctx, claim, idempotencyport.Record{Body: []byte("sha-of-body"), CreatedAt: claimedAt}); err != nil {
		t.Fatalf("Put claim: %v", err)
	}
	if _, ok, _ := store.Get(ctx, resp); ok {
		t.Fatalf("claim answered a response lookup")
	}

	first := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"contract":{"id":"abc"}}`),
		CreatedAt:   time.Unix(150, 0).UTC(),
	}
	if err := store.Put(ctx, resp, first); err != nil {
		t.Fatalf("Put response: %v", err)
	}
	got, ok, err := store.Get(ctx, resp)
	if err != nil || !ok {
		t.Fatalf("Get response ok=%v err=%v", ok, err)
	}
	if got.StatusCode != 201 || got.ContentType != "application/json" || string(got.Body) != string(first.Body) || !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("Get response=%+v, want %+v", got, first)
	}

	replaced := first
	replaced.Body = []byte(`{"contract":{"id":"def"}}`)
	replaced.CreatedAt = time.Unix(400, 0).UTC()
	if err := store.Put(ctx, resp, replaced); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	if got, _, _ := store.Get(ctx, resp); string(got.Body) != string(replaced.Body) {
		t.Fatalf("body=%q, want replaced", got.Body)
	}

	// Only the claim predates the cutoff.
	n, err := store.Purge(ctx, time.Unix(200, 0))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n < 1 {
		t.Fatalf("Purge removed %d records, want at least 1", n)
	}
	if _, ok, _ := store.Get(ctx, claim); ok {
		t.Fatalf("claim survived purge")
	}
	if _, ok, _ := store.Get(ctx, resp); !ok {
		t.Fatalf("fresh response purged")
	}
}

func RunCustomerRepo(t *testing.T, newRepo CustomerRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// A unique token scopes searches so shared databases do not leak rows between runs.
	tag := uuid.NewString()[:8]
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]domain.CustomerID, 0, 3)
	for i, name := range []string{"Alice Johnson", "Bob Stone", "Carla Johnson"} {
		id := domain.CustomerID(uuid.NewString())
		email := fmt.Sprintf("c%d-%s@example.com", i, tag)
		status := domain.CustomerStatusActive
		if i == 1 {
			status = domain.CustomerStatusBlacklisted
		}
		if err := repo.Create(ctx, domain.Customer{
			ID:        id,
			FullName:  name + " " + tag,
			Phone:     fmt.Sprintf("+1555000%d", i),
			Email:     &email,
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		ids = append(ids, id)
	}

	if err := repo.Create(ctx, domain.Customer{ID: ids[0], FullName: "dup", Phone: "1", Status: domain.CustomerStatusActive, CreatedAt: base, UpdatedAt: base}); !errors.Is(err, customerrepo.ErrAlreadyExists) {
		t.Fatalf("duplicate Create err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.GetByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email == nil || got.Status != domain.CustomerStatusActive {
		t.Fatalf("unexpected customer: %+v", got)
	}

	// Search is case-insensitive and newest first.
	f := domain.NewFilter(domain.WithSearch("JOHNSON "+tag), domain.WithPage(1, 10))
	n, err := repo.Count(ctx, f)
	if err != nil || n != 2 {
		t.Fatalf("Count: n=%d err=%v, want 2", n, err)
	}
	cs, err := repo.List(ctx, f)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cs) != 2 || cs[0].ID != ids[2] || cs[1].ID != ids[0] {
		t.Fatalf("unexpected search order: %+v", cs)
	}

	// Status membership.
	f = domain.NewFilter(domain.WithSearch(tag), domain.WithStatuses(string(domain.CustomerStatusBlacklisted)))
	if n, err := repo.Count(ctx, f); err != nil || n != 1 {
		t.Fatalf("Count blacklisted: n=%d err=%v", n, err)
	}

	// Save then Delete.
	got.Status = domain.CustomerStatusInactive
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if again, _ := repo.GetByID(ctx, ids[0]); again.Status != domain.CustomerStatusInactive {
		t.Fatalf("status=%s after Save", again.Status)
	}
	if err := repo.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, ids[1]); !errors.Is(err, customerrepo.ErrNotFound) {
		t.Fatalf("GetByID after Delete err=%v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, ids[1]); !errors.Is(err, customerrepo.ErrNotFound) {
		t.Fatalf("second Delete err=%v, want ErrNotFound", err)
	}
}

func RunVehicleRepo(t *testing.T, newRepo VehicleRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(5000, 0).UTC()
	id := domain.VehicleID(uuid.NewString())
	if err := repo.Create(ctx, domain.Vehicle{
		ID:          id,
		PlateNumber: "TST-" + uuid.NewString()[:6],
		Make:        "Toyota",
		Model:       "Corolla",
		Year:        2022,
		Status:      domain.VehicleStatusAvailable,
		Mileage:     12000,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.SetStatus(ctx, id, domain.VehicleStatusRented); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	v, err := repo.GetByID(ctx, id)
	if err != nil || v.Status != domain.VehicleStatusRented {
		t.Fatalf("GetByID: v=%+v err=%v", v, err)
	}
	rented, err := repo.ListByStatus(ctx, domain.VehicleStatusRented)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	found := false
	for _, r := range rented {
		found = found || r.ID == id
	}
	if !found {
		t.Fatalf("rented vehicle missing from ListByStatus")
	}
	if err := repo.RecordMileage(ctx, id, 12500); err != nil {
		t.Fatalf("RecordMileage: %v", err)
	}
	if v, _ := repo.GetByID(ctx, id); v.Mileage != 12500 {
		t.Fatalf("mileage=%d, want 12500", v.Mileage)
	}
	if err := repo.SetStatus(ctx, domain.VehicleID(uuid.NewString()), domain.VehicleStatusAvailable); !errors.Is(err, vehiclerepo.ErrNotFound) {
		t.Fatalf("SetStatus unknown err=%v, want ErrNotFound", err)
	}
}

// RunContractRepo exercises predicates, joins and pagination of a contract store.
func RunContractRepo(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	s, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	customerID := domain.CustomerID(uuid.NewString())
	if err := s.Customers.Create(ctx, domain.Customer{
		ID:        customerID,
		FullName:  "Dana Whitfield",
		Phone:     "+15550100",
		Status:    domain.CustomerStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	vehicleID := domain.VehicleID(uuid.NewString())
	plate := "PLT-" + uuid.NewString()[:6]
	if err := s.Vehicles.Create(ctx, domain.Vehicle{
		ID:          vehicleID,
		PlateNumber: plate,
		Make:        "Renault",
		Model:       "Clio",
		Year:        2021,
		Status:      domain.VehicleStatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}

	const n = 5
	ids := make([]domain.ContractID, 0, n)
	seeded := make([]domain.Contract, 0, n)
	for i := 0; i < n; i++ {
		id := domain.ContractID(uuid.NewString())
		status := domain.ContractStatusCompleted
		if i%2 == 0 {
			status = domain.ContractStatusActive
		}
		start := time.Date(2026, 4, 1+i, 0, 0, 0, 0, time.UTC)
		c := domain.Contract{
			ID:              id,
			ContractNumber:  fmt.Sprintf("RC2026040%d%s", i, uuid.NewString()[:4]),
			CustomerID:      customerID,
			VehicleID:       vehicleID,
			StartDate:       start,
			EndDate:         start.AddDate(0, 0, 3),
			TotalAmount:     domain.Money(1000 * (i + 1)),
			DepositAmount:   100,
			PaidAmount:      100,
			RemainingAmount: domain.Money(1000*(i+1) - 100),
			PaymentMethod:   domain.PaymentMethodCash,
			PaymentStatus:   domain.PaymentStatusPartial,
			Status:          status,
			CreatedAt:       now.Add(time.Duration(i) * time.Minute),
			UpdatedAt:       now.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Contracts.Create(ctx, c); err != nil {
			t.Fatalf("Create contract %d: %v", i, err)
		}
		ids = append(ids, id)
		seeded = append(seeded, c)
	}
	if err := s.Contracts.Create(ctx, seeded[0]); !errors.Is(err, contractrepo.ErrAlreadyExists) {
		t.Fatalf("duplicate Create err=%v, want ErrAlreadyExists", err)
	}

	// Join.
	got, err := s.Contracts.GetByID(ctx, ids[0], contractrepo.Full)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Customer == nil || got.Customer.FullName != "Dana Whitfield" {
		t.Fatalf("customer join: %+v", got.Customer)
	}
	if got.Vehicle == nil || got.Vehicle.PlateNumber != plate {
		t.Fatalf("vehicle join: %+v", got.Vehicle)
	}
	if bare, _ := s.Contracts.GetByID(ctx, ids[0], contractrepo.Hydration{}); bare.Customer != nil || bare.Vehicle != nil {
		t.Fatalf("unrequested join populated: %+v", bare)
	}

	// Count and windowed read agree; pages are disjoint and cover the set, newest first.
	scope := domain.WithCustomer(customerID)
	total, err := s.Contracts.Count(ctx, domain.NewFilter(scope))
	if err != nil || total != n {
		t.Fatalf("Count: total=%d err=%v, want %d", total, err, n)
	}
	seen := map[domain.ContractID]bool{}
	order := make([]domain.ContractID, 0, n)
	for page := 1; page <= 3; page++ {
		cs, err := s.Contracts.List(ctx, domain.NewFilter(scope, domain.WithPage(page, 2)), contractrepo.Full)
		if err != nil {
			t.Fatalf("List page %d: %v", page, err)
		}
		for _, c := range cs {
			if seen[c.ID] {
				t.Fatalf("duplicate %s across pages", c.ID)
			}
			seen[c.ID] = true
			order = append(order, c.ID)
			if c.Customer == nil || c.Vehicle == nil {
				t.Fatalf("page %d returned unhydrated contract %s", page, c.ID)
			}
		}
	}
	if len(order) != n || order[0] != ids[n-1] || order[n-1] != ids[0] {
		t.Fatalf("order=%v, want newest first over %d contracts", order, n)
	}

	// Predicates.
	active := domain.NewFilter(scope, domain.WithStatuses(string(domain.ContractStatusActive)))
	if c, err := s.Contracts.Count(ctx, active); err != nil || c != 3 {
		t.Fatalf("Count active: %d err=%v, want 3", c, err)
	}
	bySearch := domain.NewFilter(scope, domain.WithSearch("dana whit"))
	if c, err := s.Contracts.Count(ctx, bySearch); err != nil || c != n {
		t.Fatalf("Count search by customer: %d err=%v, want %d", c, err, n)
	}
	byPlate := domain.NewFilter(scope, domain.WithSearch(plate))
	if c, err := s.Contracts.Count(ctx, byPlate); err != nil || c != n {
		t.Fatalf("Count search by plate: %d err=%v, want %d", c, err, n)
	}
	from := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)
	byRange := domain.NewFilter(scope, domain.WithDateRange(&from, &to))
	if c, err := s.Contracts.Count(ctx, byRange); err != nil || c != 2 {
		t.Fatalf("Count date range: %d err=%v, want 2", c, err)
	}
	sorted, err := s.Contracts.List(ctx, domain.NewFilter(scope, domain.WithSort("total_amount", true)), contractrepo.Hydration{})
	if err != nil || len(sorted) != n || sorted[0].TotalAmount != 1000 {
		t.Fatalf("sorted by total asc: %+v err=%v", sorted, err)
	}

	// Save, Delete.
	got.Status = domain.ContractStatusCompleted
	got.UpdatedAt = now.Add(time.Hour)
	if err := s.Contracts.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if again, _ := s.Contracts.GetByID(ctx, ids[0], contractrepo.Hydration{}); again.Status != domain.ContractStatusCompleted {
		t.Fatalf("status=%s after Save", again.Status)
	}
	if err := s.Contracts.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Contracts.GetByID(ctx, ids[1], contractrepo.Hydration{}); !errors.Is(err, contractrepo.ErrNotFound) {
		t.Fatalf("GetByID after Delete err=%v, want ErrNotFound", err)
	}
	if err := s.Contracts.Save(ctx, domain.Contract{ID: domain.ContractID(uuid.NewString())}); !errors.Is(err, contractrepo.ErrNotFound) {
		t.Fatalf("Save unknown err=%v, want ErrNotFound", err)
	}
}
