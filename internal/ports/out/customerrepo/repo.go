package customerrepo

import (
	"context"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

var SortColumns = map[string]bool{
	"created_at": true,
	"full_name":  true,
	"status":     true,
}

// Repository is the record store boundary for customers.
//
// Search matches case-insensitively on full name, phone, email and national ID.
// From / To bound CreatedAt. Default order is CreatedAt descending, then ID.
type Repository interface {
	Create(ctx context.Context, c domain.Customer) error
	Save(ctx context.Context, c domain.Customer) error
	Delete(ctx context.Context, id domain.CustomerID) error

	GetByID(ctx context.Context, id domain.CustomerID) (domain.Customer, error)

	Count(ctx context.Context, f domain.Filter) (int, error)
	List(ctx context.Context, f domain.Filter) ([]domain.Customer, error)
}
