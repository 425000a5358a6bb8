package contracts

import (
	"time"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/patch"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

// CreateInput is a contract draft. Zero-valued enums take their defaults:
// payment method cash, payment status derived from the deposit, status active.
type CreateInput struct {
	CustomerID domain.CustomerID
	VehicleID  domain.VehicleID

	StartDate time.Time
	EndDate   time.Time

	DailyRate     domain.Money
	TotalAmount   domain.Money
	DepositAmount *domain.Money

	PaymentMethod domain.PaymentMethod
	PaymentStatus domain.PaymentStatus
	Status        domain.ContractStatus

	PickupMileage *int
	FuelLevelOut  *int
	Notes         *string
}

type UpdateInput struct {
	StartDate patch.Optional[time.Time]
	EndDate   patch.Optional[time.Time]

	DailyRate   patch.Optional[domain.Money]
	TotalAmount patch.Optional[domain.Money]
	PaidAmount  patch.Optional[domain.Money]

	PaymentMethod patch.Optional[domain.PaymentMethod]
	// PaymentStatus, when omitted, is re-derived if any amount changed.
	PaymentStatus patch.Optional[domain.PaymentStatus]
	Status        patch.Optional[domain.ContractStatus]

	PickupMileage patch.Optional[int]
	FuelLevelOut  patch.Optional[int]
	Notes         patch.Optional[string]
}

// CompleteInput is what gets recorded when the vehicle comes back.
type CompleteInput struct {
	ReturnMileage *int
	FuelLevelIn   *int
	Charges       domain.ReturnCharges
	// Payment is collected at return and added to the paid amount.
	Payment domain.Money
	Notes   *string
}
