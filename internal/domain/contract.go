package domain

import "time"

// Money is an amount in minor currency units (cents).
type Money int64

type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "active"
	ContractStatusCompleted ContractStatus = "completed"
	ContractStatusExpired   ContractStatus = "expired"
	ContractStatusPending   ContractStatus = "pending"
	ContractStatusCancelled ContractStatus = "cancelled"
)

// ContractStatuses lists every lifecycle status in display order.
var ContractStatuses = []ContractStatus{
	ContractStatusActive,
	ContractStatusPending,
	ContractStatusCompleted,
	ContractStatusExpired,
	ContractStatusCancelled,
}

func (s ContractStatus) Valid() bool {
	for _, v := range ContractStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// HoldsVehicle reports whether a contract in this status keeps its vehicle
// rented. An expired contract is overdue, not returned.
func (s ContractStatus) HoldsVehicle() bool {
	return s == ContractStatusActive || s == ContractStatusExpired
}

// VehicleHoldingStatuses are the statuses for which HoldsVehicle is true.
var VehicleHoldingStatuses = []ContractStatus{ContractStatusActive, ContractStatusExpired}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

var PaymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid}

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPartial || s == PaymentStatusPaid
}

// PaymentStatusFor derives the payment status from what has been paid against what is owed.
func PaymentStatusFor(paid, remaining Money) PaymentStatus {
	switch {
	case remaining <= 0:
		return PaymentStatusPaid
	case paid <= 0:
		return PaymentStatusPending
	default:
		return PaymentStatusPartial
	}
}

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCheque   PaymentMethod = "cheque"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCheque:
		return true
	default:
		return false
	}
}

// CustomerRef is the customer sub-record attached to a contract by the store join.
type CustomerRef struct {
	ID       CustomerID
	FullName string
	Phone    string
	Email    *string
}

// VehicleRef is the vehicle sub-record attached to a contract by the store join.
type VehicleRef struct {
	ID          VehicleID
	PlateNumber string
	Make        string
	Model       string
	Status      VehicleStatus
}

// ReturnCharges is the reconciliation breakdown captured when a vehicle comes back.
type ReturnCharges struct {
	Damage   Money
	Cleaning Money
	Late     Money
	Fuel     Money
}

// Total is the additional_charges value of a completed contract.
func (c ReturnCharges) Total() Money {
	return c.Damage + c.Cleaning + c.Late + c.Fuel
}

// Contract is a rental agreement binding one customer to one vehicle for a date range.
//
// RemainingAmount is stored, not derived on read: it is set by the mutation
// coordinator whenever TotalAmount, PaidAmount or AdditionalCharges change.
type Contract struct {
	ID             ContractID
	ContractNumber string

	CustomerID CustomerID
	VehicleID  VehicleID

	StartDate time.Time // date-only semantics
	EndDate   time.Time // date-only semantics

	DailyRate         Money
	TotalAmount       Money
	DepositAmount     Money
	PaidAmount        Money
	RemainingAmount   Money
	AdditionalCharges Money

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Status        ContractStatus

	PickupMileage *int
	ReturnMileage *int
	FuelLevelOut  *int // percent
	FuelLevelIn   *int // percent

	Charges    ReturnCharges
	ReturnedAt *time.Time
	Notes      *string

	// Populated by the store join; nil when hydration was not requested.
	Customer *CustomerRef
	Vehicle  *VehicleRef

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so cached and working-set values are never aliased.
func (c Contract) Clone() Contract {
	cp := c
	cp.PickupMileage = cloneIntPtr(c.PickupMileage)
	cp.ReturnMileage = cloneIntPtr(c.ReturnMileage)
	cp.FuelLevelOut = cloneIntPtr(c.FuelLevelOut)
	cp.FuelLevelIn = cloneIntPtr(c.FuelLevelIn)
	cp.Notes = cloneStringPtr(c.Notes)
	if c.ReturnedAt != nil {
		v := *c.ReturnedAt
		cp.ReturnedAt = &v
	}
	if c.Customer != nil {
		ref := *c.Customer
		ref.Email = cloneStringPtr(c.Customer.Email)
		cp.Customer = &ref
	}
	if c.Vehicle != nil {
		ref := *c.Vehicle
		cp.Vehicle = &ref
	}
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
