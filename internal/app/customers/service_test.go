package customers_test

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
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/customers"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/patch"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	portcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
)

type fixture struct {
	svc       *customers.Service
	customers *memcustomerrepo.Repo
	contracts *memcontractrepo.Repo
	cache     *cache.Store
	clock     *memclock.ManualClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC))
	customersRepo := memcustomerrepo.NewRepo()
	contractsRepo := memcontractrepo.NewRepo(customersRepo, memvehiclerepo.NewRepo())
	c := cache.New(clk)
	svc := customers.NewService(customersRepo, contractsRepo, c, clk)
	t.Cleanup(svc.Close)
	return fixture{svc: svc, customers: customersRepo, contracts: contractsRepo, cache: c, clock: clk}
}

func ptr(s string) *string { return &s }

func TestService_Create_NormalizesAndDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.svc.SetNewCustomerIDForTest(func() domain.CustomerID { return "cu1" })

	c, err := f.svc.Create(context.Background(), customers.CreateInput{
		FullName:   "  Dana   Whitfield ",
		Phone:      " +15550100 ",
		Email:      ptr("Dana@Example.com"),
		NationalID: ptr("   "),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID != "cu1" || c.FullName != "Dana Whitfield" || c.Phone != "+15550100" || c.Status != domain.CustomerStatusActive {
		t.Fatalf("customer=%+v", c)
	}
	if c.Email == nil || *c.Email != "dana@example.com" || c.NationalID != nil {
		t.Fatalf("email=%v nationalId=%v", c.Email, c.NationalID)
	}
	if _, err := f.customers.GetByID(context.Background(), "cu1"); err != nil {
		t.Fatalf("not stored: %v", err)
	}
}

func TestService_Create_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cases := []customers.CreateInput{
		{FullName: " ", Phone: "1"},
		{FullName: "Dana", Phone: ""},
		{FullName: "Dana", Phone: "1", Email: ptr("not-an-email")},
		{FullName: "Dana", Phone: "1", Email: ptr("Dana <dana@example.com>")},
		{FullName: "Dana", Phone: "1", Status: "vip"},
	}
	for i, in := range cases {
		if _, err := f.svc.Create(context.Background(), in); !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("case %d: err=%v, want validation", i, err)
		}
	}
	if n, _ := f.customers.Count(context.Background(), domain.NewFilter()); n != 0 {
		t.Fatalf("stored=%d after rejected input", n)
	}
}

func TestService_Update_TriState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c, err := f.svc.Create(context.Background(), customers.CreateInput{FullName: "Dana", Phone: "1", Email: ptr("d@example.com"), Address: ptr("1 Main St")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := f.svc.Update(context.Background(), c.ID, customers.UpdateInput{
		Email:  patch.Null[string](),
		Status: patch.Some(domain.CustomerStatusBlacklisted),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Email != nil || got.Address == nil || *got.Address != "1 Main St" || got.Status != domain.CustomerStatusBlacklisted {
		t.Fatalf("customer=%+v", got)
	}

	if _, err := f.svc.Update(context.Background(), c.ID, customers.UpdateInput{FullName: patch.Null[string]()}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err=%v, want validation for null name", err)
	}
	if _, err := f.svc.Update(context.Background(), "missing", customers.UpdateInput{}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v, want not found", err)
	}
}

func TestService_MutationInvalidatesBothFamilies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cache.Put(cache.FamilyContracts, "k", 1)
	f.cache.Put(cache.FamilyCustomers, "k", 1)

	if _, err := f.svc.Create(context.Background(), customers.CreateInput{FullName: "Dana", Phone: "1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := f.cache.Get(cache.FamilyContracts, "k"); ok {
		t.Fatalf("contracts family survived a customer mutation")
	}
	if _, ok := f.cache.Get(cache.FamilyCustomers, "k"); ok {
		t.Fatalf("customers family survived a customer mutation")
	}
}

func TestService_Delete_RefusesWithActiveContract(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c, _ := f.svc.Create(context.Background(), customers.CreateInput{FullName: "Dana", Phone: "1"})
	now := f.clock.Now()
	if err := f.contracts.Create(context.Background(), domain.Contract{
		ID:         "k1",
		CustomerID: c.ID,
		VehicleID:  "v1",
		Status:     domain.ContractStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("seed contract: %v", err)
	}

	err := f.svc.Delete(context.Background(), c.ID)
	ae, ok := apperr.As(err)
	if !ok || ae.Status != 409 || ae.Code != "CUSTOMER_HAS_ACTIVE_CONTRACTS" {
		t.Fatalf("err=%v, want CUSTOMER_HAS_ACTIVE_CONTRACTS", err)
	}

	k, _ := f.contracts.GetByID(context.Background(), "k1", portcontractrepo.Hydration{})
	k.Status = domain.ContractStatusCompleted
	if err := f.contracts.Save(context.Background(), k); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := f.svc.Delete(context.Background(), c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), c.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("Get after delete err=%v", err)
	}
}

type failingRepo struct {
	*memcustomerrepo.Repo
}

func (failingRepo) Count(context.Context, domain.Filter) (int, error) {
	return 0, errors.New("connection refused")
}

func TestService_List_StoreFailure(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(0, 0).UTC())
	repo := failingRepo{memcustomerrepo.NewRepo()}
	svc := customers.NewService(repo, memcontractrepo.NewRepo(nil, nil), cache.New(clk), clk)
	t.Cleanup(svc.Close)

	_, err := svc.List(context.Background(), domain.NewFilter(), true)
	ae, ok := apperr.As(err)
	if !ok || !ae.Retryable() {
		t.Fatalf("err=%v, want retryable store failure", err)
	}
}

func TestService_SearchAndStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, name := range []string{"Dana Whitfield", "Omar Haddad", "Dani Rossi"} {
		if _, err := f.svc.Create(context.Background(), customers.CreateInput{FullName: name, Phone: "1"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	f.svc.Search(context.Background(), "d", domain.NewFilter())
	f.svc.Search(context.Background(), "dan", domain.NewFilter())
	f.svc.FlushSearch()

	items, _ := f.svc.Working()
	if len(items) != 2 {
		t.Fatalf("working set=%v, want the two Dan* customers", items)
	}
	s, err := f.svc.Stats(context.Background())
	if err != nil || s.Total != 2 || s.NewThisMonth != 2 || s.ContactRate != 0 {
		t.Fatalf("stats=%+v err=%v", s, err)
	}
}
