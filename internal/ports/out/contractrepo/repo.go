package contractrepo

import (
	"context"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

// Hydration selects which related records the store attaches to each contract.
// A failed join fails the whole read; partially hydrated pages are never returned.
type Hydration struct {
	Customer bool
	Vehicle  bool
}

// Full attaches both the customer and the vehicle.
var Full = Hydration{Customer: true, Vehicle: true}

// SortColumns are the columns a filter may name in SortBy.
var SortColumns = map[string]bool{
	"created_at":      true,
	"start_date":      true,
	"end_date":        true,
	"total_amount":    true,
	"contract_number": true,
	"status":          true,
}

// Repository is the record store boundary for contracts.
//
// Predicate translation (shared by Count and List):
//   - Search: case-insensitive substring on contract number, customer full name and vehicle plate
//   - Statuses / PaymentStatuses: "in" membership
//   - CustomerID / VehicleID: equality
//   - From / To: inclusive range on StartDate
//
// List returns the filter's window ordered by SortBy (default CreatedAt descending),
// ties broken by ID so pages never overlap.
type Repository interface {
	Create(ctx context.Context, c domain.Contract) error
	Save(ctx context.Context, c domain.Contract) error
	Delete(ctx context.Context, id domain.ContractID) error

	GetByID(ctx context.Context, id domain.ContractID, h Hydration) (domain.Contract, error)

	Count(ctx context.Context, f domain.Filter) (int, error)
	List(ctx context.Context, f domain.Filter, h Hydration) ([]domain.Contract, error)
}
