package contractrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
)

type failingCustomers struct{ err error }

func (f failingCustomers) GetByID(context.Context, domain.CustomerID) (domain.Customer, error) {
	return domain.Customer{}, f.err
}

func TestRepo_List_JoinFailureFailsWholeRead(t *testing.T) {
	t.Parallel()

	boom := errors.New("customers unavailable")
	r := NewRepo(failingCustomers{err: boom}, nil)
	now := time.Unix(100, 0).UTC()
	_ = r.Create(context.Background(), domain.Contract{ID: "k1", CustomerID: "c1", VehicleID: "v1", Status: domain.ContractStatusActive, CreatedAt: now, UpdatedAt: now})

	got, err := r.List(context.Background(), domain.NewFilter(), contractrepo.Full)
	if !errors.Is(err, boom) {
		t.Fatalf("List err=%v, want %v", err, boom)
	}
	if got != nil {
		t.Fatalf("List returned partial page %v", got)
	}

	// Without hydration the same read succeeds.
	if got, err := r.List(context.Background(), domain.NewFilter(), contractrepo.Hydration{}); err != nil || len(got) != 1 {
		t.Fatalf("List without join: len=%d err=%v", len(got), err)
	}
}

func TestRepo_StoresWithoutRefs(t *testing.T) {
	t.Parallel()

	r := NewRepo(nil, nil)
	now := time.Unix(100, 0).UTC()
	c := domain.Contract{
		ID:        "k1",
		Customer:  &domain.CustomerRef{ID: "c1", FullName: "stale"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := r.GetByID(context.Background(), "k1", contractrepo.Hydration{})
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Customer != nil {
		t.Fatalf("stored contract kept a join ref: %+v", got.Customer)
	}
}
