package domain

import "time"

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusRented      VehicleStatus = "rented"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

func (s VehicleStatus) Valid() bool {
	return s == VehicleStatusAvailable || s == VehicleStatusRented || s == VehicleStatusMaintenance
}

// Vehicle is the fleet record as far as rental contracts need to see it.
type Vehicle struct {
	ID          VehicleID
	PlateNumber string
	Make        string
	Model       string
	Year        int

	Status  VehicleStatus
	Mileage int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v Vehicle) Ref() *VehicleRef {
	return &VehicleRef{
		ID:          v.ID,
		PlateNumber: v.PlateNumber,
		Make:        v.Make,
		Model:       v.Model,
		Status:      v.Status,
	}
}
