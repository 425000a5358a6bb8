package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/contracts"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/customers"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/patch"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/reconcile"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/stats"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

// Amounts on the wire are integer cents.

type CustomerRef struct {
	Id       string  `json:"id"`
	FullName string  `json:"fullName"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email,omitempty"`
}

type VehicleRef struct {
	Id          string `json:"id"`
	PlateNumber string `json:"plateNumber"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Status      string `json:"status"`
}

type Contract struct {
	Id             string `json:"id"`
	ContractNumber string `json:"contractNumber"`
	CustomerId     string `json:"customerId"`
	VehicleId      string `json:"vehicleId"`

	StartDate openapi_types.Date `json:"startDate"`
	EndDate   openapi_types.Date `json:"endDate"`

	DailyRate         int64 `json:"dailyRate"`
	TotalAmount       int64 `json:"totalAmount"`
	DepositAmount     int64 `json:"depositAmount"`
	PaidAmount        int64 `json:"paidAmount"`
	RemainingAmount   int64 `json:"remainingAmount"`
	AdditionalCharges int64 `json:"additionalCharges"`
	DamageCharges     int64 `json:"damageCharges"`
	CleaningCharges   int64 `json:"cleaningCharges"`
	LateCharges       int64 `json:"lateCharges"`
	FuelCharges       int64 `json:"fuelCharges"`

	PaymentMethod string `json:"paymentMethod"`
	PaymentStatus string `json:"paymentStatus"`
	Status        string `json:"status"`

	PickupMileage *int       `json:"pickupMileage,omitempty"`
	ReturnMileage *int       `json:"returnMileage,omitempty"`
	FuelLevelOut  *int       `json:"fuelLevelOut,omitempty"`
	FuelLevelIn   *int       `json:"fuelLevelIn,omitempty"`
	ReturnedAt    *time.Time `json:"returnedAt,omitempty"`
	Notes         *string    `json:"notes,omitempty"`

	Customer *CustomerRef `json:"customer,omitempty"`
	Vehicle  *VehicleRef  `json:"vehicle,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ContractResponse struct {
	Contract Contract `json:"contract"`
	Warning  *Warning `json:"warning,omitempty"`
}

type ContractPage struct {
	Items    []Contract `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	HasMore  bool       `json:"hasMore"`
}

type CreateContractRequest struct {
	CustomerId    string             `json:"customerId"`
	VehicleId     string             `json:"vehicleId"`
	StartDate     openapi_types.Date `json:"startDate"`
	EndDate       openapi_types.Date `json:"endDate"`
	DailyRate     int64              `json:"dailyRate"`
	TotalAmount   int64              `json:"totalAmount"`
	DepositAmount *int64             `json:"depositAmount,omitempty"`
	PaymentMethod *string            `json:"paymentMethod,omitempty"`
	PaymentStatus *string            `json:"paymentStatus,omitempty"`
	Status        *string            `json:"status,omitempty"`
	PickupMileage *int               `json:"pickupMileage,omitempty"`
	FuelLevelOut  *int               `json:"fuelLevelOut,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
}

// UpdateContractRequest distinguishes an omitted member (unchanged) from an
// explicit null (cleared).
type UpdateContractRequest struct {
	StartDate     nullable.Nullable[openapi_types.Date] `json:"startDate,omitempty"`
	EndDate       nullable.Nullable[openapi_types.Date] `json:"endDate,omitempty"`
	DailyRate     nullable.Nullable[int64]              `json:"dailyRate,omitempty"`
	TotalAmount   nullable.Nullable[int64]              `json:"totalAmount,omitempty"`
	PaidAmount    nullable.Nullable[int64]              `json:"paidAmount,omitempty"`
	PaymentMethod nullable.Nullable[string]             `json:"paymentMethod,omitempty"`
	PaymentStatus nullable.Nullable[string]             `json:"paymentStatus,omitempty"`
	Status        nullable.Nullable[string]             `json:"status,omitempty"`
	PickupMileage nullable.Nullable[int]                `json:"pickupMileage,omitempty"`
	FuelLevelOut  nullable.Nullable[int]                `json:"fuelLevelOut,omitempty"`
	Notes         nullable.Nullable[string]             `json:"notes,omitempty"`
}

type CompleteContractRequest struct {
	ReturnMileage   *int    `json:"returnMileage,omitempty"`
	FuelLevelIn     *int    `json:"fuelLevelIn,omitempty"`
	DamageCharges   int64   `json:"damageCharges"`
	CleaningCharges int64   `json:"cleaningCharges"`
	LateCharges     int64   `json:"lateCharges"`
	FuelCharges     int64   `json:"fuelCharges"`
	Payment         int64   `json:"payment"`
	Notes           *string `json:"notes,omitempty"`
}

type ContractStats struct {
	Total             int            `json:"total"`
	ByStatus          map[string]int `json:"byStatus"`
	ByPaymentStatus   map[string]int `json:"byPaymentStatus"`
	Active            int            `json:"active"`
	TotalRevenue      int64          `json:"totalRevenue"`
	Collected         int64          `json:"collected"`
	Outstanding       int64          `json:"outstanding"`
	AdditionalCharges int64          `json:"additionalCharges"`
	AverageValue      int64          `json:"averageValue"`
	CollectionRate    float64        `json:"collectionRate"`
	ThisMonthCount    int            `json:"thisMonthCount"`
	ThisMonthRevenue  int64          `json:"thisMonthRevenue"`
}

type Customer struct {
	Id            string    `json:"id"`
	FullName      string    `json:"fullName"`
	Phone         string    `json:"phone"`
	Email         *string   `json:"email,omitempty"`
	NationalId    *string   `json:"nationalId,omitempty"`
	DriverLicense *string   `json:"driverLicense,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CustomerResponse struct {
	Customer Customer `json:"customer"`
}

type CustomerPage struct {
	Items    []Customer `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	HasMore  bool       `json:"hasMore"`
}

type CreateCustomerRequest struct {
	FullName      string  `json:"fullName"`
	Phone         string  `json:"phone"`
	Email         *string `json:"email,omitempty"`
	NationalId    *string `json:"nationalId,omitempty"`
	DriverLicense *string `json:"driverLicense,omitempty"`
	Address       *string `json:"address,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	Status        *string `json:"status,omitempty"`
}

type UpdateCustomerRequest struct {
	FullName      nullable.Nullable[string] `json:"fullName,omitempty"`
	Phone         nullable.Nullable[string] `json:"phone,omitempty"`
	Email         nullable.Nullable[string] `json:"email,omitempty"`
	NationalId    nullable.Nullable[string] `json:"nationalId,omitempty"`
	DriverLicense nullable.Nullable[string] `json:"driverLicense,omitempty"`
	Address       nullable.Nullable[string] `json:"address,omitempty"`
	Notes         nullable.Nullable[string] `json:"notes,omitempty"`
	Status        nullable.Nullable[string] `json:"status,omitempty"`
}

type CustomerStats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"byStatus"`
	Active       int            `json:"active"`
	Blacklisted  int            `json:"blacklisted"`
	NewThisMonth int            `json:"newThisMonth"`
	ContactRate  float64        `json:"contactRate"`
}

type Vehicle struct {
	Id          string    `json:"id"`
	PlateNumber string    `json:"plateNumber"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	Status      string    `json:"status"`
	Mileage     int       `json:"mileage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateVehicleRequest struct {
	PlateNumber string  `json:"plateNumber"`
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Year        int     `json:"year"`
	Status      *string `json:"status,omitempty"`
	Mileage     int     `json:"mileage"`
}

// SearchRequest starts a debounced search. Filter members other than the text
// come from the query string, as for list requests.
type SearchRequest struct {
	Search string `json:"search"`
}

type SearchAccepted struct {
	Search string `json:"search"`
}

type Drift struct {
	Kind          string   `json:"kind"`
	VehicleId     string   `json:"vehicleId"`
	VehicleStatus string   `json:"vehicleStatus,omitempty"`
	ContractIds   []string `json:"contractIds,omitempty"`
	Repaired      bool     `json:"repaired"`
	Error         string   `json:"error,omitempty"`
}

type ReconcileReport struct {
	CheckedContracts int     `json:"checkedContracts"`
	RentedVehicles   int     `json:"rentedVehicles"`
	Drifts           []Drift `json:"drifts"`
	Repaired         int     `json:"repaired"`
}

func contractFromDomain(c domain.Contract) Contract {
	out := Contract{
		Id:                string(c.ID),
		ContractNumber:    c.ContractNumber,
		CustomerId:        string(c.CustomerID),
		VehicleId:         string(c.VehicleID),
		StartDate:         openapi_types.Date{Time: c.StartDate},
		EndDate:           openapi_types.Date{Time: c.EndDate},
		DailyRate:         int64(c.DailyRate),
		TotalAmount:       int64(c.TotalAmount),
		DepositAmount:     int64(c.DepositAmount),
		PaidAmount:        int64(c.PaidAmount),
		RemainingAmount:   int64(c.RemainingAmount),
		AdditionalCharges: int64(c.AdditionalCharges),
		DamageCharges:     int64(c.Charges.Damage),
		CleaningCharges:   int64(c.Charges.Cleaning),
		LateCharges:       int64(c.Charges.Late),
		FuelCharges:       int64(c.Charges.Fuel),
		PaymentMethod:     string(c.PaymentMethod),
		PaymentStatus:     string(c.PaymentStatus),
		Status:            string(c.Status),
		PickupMileage:     c.PickupMileage,
		ReturnMileage:     c.ReturnMileage,
		FuelLevelOut:      c.FuelLevelOut,
		FuelLevelIn:       c.FuelLevelIn,
		ReturnedAt:        c.ReturnedAt,
		Notes:             c.Notes,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if c.Customer != nil {
		out.Customer = &CustomerRef{
			Id:       string(c.Customer.ID),
			FullName: c.Customer.FullName,
			Phone:    c.Customer.Phone,
			Email:    c.Customer.Email,
		}
	}
	if c.Vehicle != nil {
		out.Vehicle = &VehicleRef{
			Id:          string(c.Vehicle.ID),
			PlateNumber: c.Vehicle.PlateNumber,
			Make:        c.Vehicle.Make,
			Model:       c.Vehicle.Model,
			Status:      string(c.Vehicle.Status),
		}
	}
	return out
}

func contractPageFromDomain(p domain.Page[domain.Contract]) ContractPage {
	items := make([]Contract, 0, len(p.Items))
	for _, c := range p.Items {
		items = append(items, contractFromDomain(c))
	}
	return ContractPage{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize, HasMore: p.HasMore}
}

func contractStatsFromDomain(s stats.ContractStats) ContractStats {
	out := ContractStats{
		Total:             s.Total,
		ByStatus:          make(map[string]int, len(s.ByStatus)),
		ByPaymentStatus:   make(map[string]int, len(s.ByPaymentStatus)),
		Active:            s.Active,
		TotalRevenue:      int64(s.TotalRevenue),
		Collected:         int64(s.Collected),
		Outstanding:       int64(s.Outstanding),
		AdditionalCharges: int64(s.AdditionalCharges),
		AverageValue:      int64(s.AverageValue),
		CollectionRate:    s.CollectionRate,
		ThisMonthCount:    s.ThisMonthCount,
		ThisMonthRevenue:  int64(s.ThisMonthRevenue),
	}
	for k, v := range s.ByStatus {
		out.ByStatus[string(k)] = v
	}
	for k, v := range s.ByPaymentStatus {
		out.ByPaymentStatus[string(k)] = v
	}
	return out
}

func createContractInputFromDTO(b CreateContractRequest) contracts.CreateInput {
	in := contracts.CreateInput{
		CustomerID:    domain.CustomerID(b.CustomerId),
		VehicleID:     domain.VehicleID(b.VehicleId),
		StartDate:     b.StartDate.Time,
		EndDate:       b.EndDate.Time,
		DailyRate:     domain.Money(b.DailyRate),
		TotalAmount:   domain.Money(b.TotalAmount),
		PickupMileage: b.PickupMileage,
		FuelLevelOut:  b.FuelLevelOut,
		Notes:         b.Notes,
	}
	if b.DepositAmount != nil {
		d := domain.Money(*b.DepositAmount)
		in.DepositAmount = &d
	}
	if b.PaymentMethod != nil {
		in.PaymentMethod = domain.PaymentMethod(*b.PaymentMethod)
	}
	if b.PaymentStatus != nil {
		in.PaymentStatus = domain.PaymentStatus(*b.PaymentStatus)
	}
	if b.Status != nil {
		in.Status = domain.ContractStatus(*b.Status)
	}
	return in
}

func updateContractInputFromDTO(b UpdateContractRequest) contracts.UpdateInput {
	return contracts.UpdateInput{
		StartDate:     optionalFromNullable(b.StartDate, func(d openapi_types.Date) time.Time { return d.Time }),
		EndDate:       optionalFromNullable(b.EndDate, func(d openapi_types.Date) time.Time { return d.Time }),
		DailyRate:     optionalFromNullable(b.DailyRate, toMoney),
		TotalAmount:   optionalFromNullable(b.TotalAmount, toMoney),
		PaidAmount:    optionalFromNullable(b.PaidAmount, toMoney),
		PaymentMethod: optionalFromNullable(b.PaymentMethod, func(s string) domain.PaymentMethod { return domain.PaymentMethod(s) }),
		PaymentStatus: optionalFromNullable(b.PaymentStatus, func(s string) domain.PaymentStatus { return domain.PaymentStatus(s) }),
		Status:        optionalFromNullable(b.Status, func(s string) domain.ContractStatus { return domain.ContractStatus(s) }),
		PickupMileage: optionalFromNullable(b.PickupMileage, identity[int]),
		FuelLevelOut:  optionalFromNullable(b.FuelLevelOut, identity[int]),
		Notes:         optionalFromNullable(b.Notes, identity[string]),
	}
}

func completeContractInputFromDTO(b CompleteContractRequest) contracts.CompleteInput {
	return contracts.CompleteInput{
		ReturnMileage: b.ReturnMileage,
		FuelLevelIn:   b.FuelLevelIn,
		Charges: domain.ReturnCharges{
			Damage:   domain.Money(b.DamageCharges),
			Cleaning: domain.Money(b.CleaningCharges),
			Late:     domain.Money(b.LateCharges),
			Fuel:     domain.Money(b.FuelCharges),
		},
		Payment: domain.Money(b.Payment),
		Notes:   b.Notes,
	}
}

func customerFromDomain(c domain.Customer) Customer {
	return Customer{
		Id:            string(c.ID),
		FullName:      c.FullName,
		Phone:         c.Phone,
		Email:         c.Email,
		NationalId:    c.NationalID,
		DriverLicense: c.DriverLicense,
		Address:       c.Address,
		Notes:         c.Notes,
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func customerPageFromDomain(p domain.Page[domain.Customer]) CustomerPage {
	items := make([]Customer, 0, len(p.Items))
	for _, c := range p.Items {
		items = append(items, customerFromDomain(c))
	}
	return CustomerPage{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize, HasMore: p.HasMore}
}

func customerStatsFromDomain(s stats.CustomerStats) CustomerStats {
	out := CustomerStats{
		Total:        s.Total,
		ByStatus:     make(map[string]int, len(s.ByStatus)),
		Active:       s.Active,
		Blacklisted:  s.Blacklisted,
		NewThisMonth: s.NewThisMonth,
		ContactRate:  s.ContactRate,
	}
	for k, v := range s.ByStatus {
		out.ByStatus[string(k)] = v
	}
	return out
}

func createCustomerInputFromDTO(b CreateCustomerRequest) customers.CreateInput {
	in := customers.CreateInput{
		FullName:      b.FullName,
		Phone:         b.Phone,
		Email:         b.Email,
		NationalID:    b.NationalId,
		DriverLicense: b.DriverLicense,
		Address:       b.Address,
		Notes:         b.Notes,
	}
	if b.Status != nil {
		in.Status = domain.CustomerStatus(*b.Status)
	}
	return in
}

func updateCustomerInputFromDTO(b UpdateCustomerRequest) customers.UpdateInput {
	return customers.UpdateInput{
		FullName:      optionalFromNullable(b.FullName, identity[string]),
		Phone:         optionalFromNullable(b.Phone, identity[string]),
		Email:         optionalFromNullable(b.Email, identity[string]),
		NationalID:    optionalFromNullable(b.NationalId, identity[string]),
		DriverLicense: optionalFromNullable(b.DriverLicense, identity[string]),
		Address:       optionalFromNullable(b.Address, identity[string]),
		Notes:         optionalFromNullable(b.Notes, identity[string]),
		Status:        optionalFromNullable(b.Status, func(s string) domain.CustomerStatus { return domain.CustomerStatus(s) }),
	}
}

func vehicleFromDomain(v domain.Vehicle) Vehicle {
	return Vehicle{
		Id:          string(v.ID),
		PlateNumber: v.PlateNumber,
		Make:        v.Make,
		Model:       v.Model,
		Year:        v.Year,
		Status:      string(v.Status),
		Mileage:     v.Mileage,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func reconcileReportFromDomain(r reconcile.Report) ReconcileReport {
	out := ReconcileReport{
		CheckedContracts: r.CheckedContracts,
		RentedVehicles:   r.RentedVehicles,
		Drifts:           make([]Drift, 0, len(r.Drifts)),
		Repaired:         r.Repaired,
	}
	for _, d := range r.Drifts {
		ids := make([]string, 0, len(d.ContractIDs))
		for _, id := range d.ContractIDs {
			ids = append(ids, string(id))
		}
		out.Drifts = append(out.Drifts, Drift{
			Kind:          string(d.Kind),
			VehicleId:     string(d.VehicleID),
			VehicleStatus: string(d.VehicleStatus),
			ContractIds:   ids,
			Repaired:      d.Repaired,
			Error:         d.Error,
		})
	}
	return out
}

func optionalFromNullable[T, U any](n nullable.Nullable[T], conv func(T) U) patch.Optional[U] {
	if !n.IsSpecified() {
		return patch.Unspecified[U]()
	}
	if n.IsNull() {
		return patch.Null[U]()
	}
	v, err := n.Get()
	if err != nil {
		return patch.Unspecified[U]()
	}
	return patch.Some(conv(v))
}

func identity[T any](v T) T { return v }

func toMoney(v int64) domain.Money { return domain.Money(v) }
