package vehiclerepo

import (
	"context"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

// StatusSetter is the fleet subsystem's vehicle-status endpoint. Contract
// mutations call it as a side effect; it is the only write this module makes
// to vehicle records besides mileage.
type StatusSetter interface {
	SetStatus(ctx context.Context, id domain.VehicleID, status domain.VehicleStatus) error
}

// Repository provides access to fleet vehicles.
type Repository interface {
	StatusSetter

	Create(ctx context.Context, v domain.Vehicle) error
	GetByID(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error)

	// RecordMileage stores the odometer reading taken at vehicle return.
	RecordMileage(ctx context.Context, id domain.VehicleID, mileage int) error

	// ListByStatus returns vehicles in the given status ordered by plate number.
	ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error)
}
