package domain

import "time"

type CustomerStatus string

const (
	CustomerStatusActive      CustomerStatus = "active"
	CustomerStatusInactive    CustomerStatus = "inactive"
	CustomerStatusBlacklisted CustomerStatus = "blacklisted"
)

var CustomerStatuses = []CustomerStatus{CustomerStatusActive, CustomerStatusInactive, CustomerStatusBlacklisted}

func (s CustomerStatus) Valid() bool {
	return s == CustomerStatusActive || s == CustomerStatusInactive || s == CustomerStatusBlacklisted
}

// Customer is a renter on file.
type Customer struct {
	ID CustomerID

	FullName string
	Phone    string

	Email         *string
	NationalID    *string
	DriverLicense *string
	Address       *string
	Notes         *string

	Status CustomerStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Customer) Clone() Customer {
	cp := c
	cp.Email = cloneStringPtr(c.Email)
	cp.NationalID = cloneStringPtr(c.NationalID)
	cp.DriverLicense = cloneStringPtr(c.DriverLicense)
	cp.Address = cloneStringPtr(c.Address)
	cp.Notes = cloneStringPtr(c.Notes)
	return cp
}

// Ref is the shape attached to contracts by the store join.
func (c Customer) Ref() *CustomerRef {
	return &CustomerRef{
		ID:       c.ID,
		FullName: c.FullName,
		Phone:    c.Phone,
		Email:    cloneStringPtr(c.Email),
	}
}
