package contracts

import (
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

func validateCreate(in CreateInput) error {
	if in.CustomerID == "" {
		return apperr.Validation("invalid customer", "customerId", "required")
	}
	if in.VehicleID == "" {
		return apperr.Validation("invalid vehicle", "vehicleId", "required")
	}
	if in.StartDate.IsZero() {
		return apperr.Validation("invalid dates", "startDate", "required")
	}
	if in.EndDate.IsZero() {
		return apperr.Validation("invalid dates", "endDate", "required")
	}
	if domain.Day(in.EndDate).Before(domain.Day(in.StartDate)) {
		return apperr.Validation("invalid dates", "endDate", "must not be before startDate")
	}
	if in.TotalAmount <= 0 {
		return apperr.Validation("invalid total", "totalAmount", "must be > 0")
	}
	if in.DailyRate < 0 {
		return apperr.Validation("invalid daily rate", "dailyRate", "must be >= 0")
	}
	if in.DepositAmount != nil && (*in.DepositAmount < 0 || *in.DepositAmount > in.TotalAmount) {
		return apperr.Validation("invalid deposit", "depositAmount", "must be between 0 and totalAmount")
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return apperr.Validation("invalid payment method", "paymentMethod", "unknown value")
	}
	if in.PaymentStatus != "" && !in.PaymentStatus.Valid() {
		return apperr.Validation("invalid payment status", "paymentStatus", "unknown value")
	}
	if in.Status != "" && !in.Status.Valid() {
		return apperr.Validation("invalid status", "status", "unknown value")
	}
	if err := validateMileage("pickupMileage", in.PickupMileage); err != nil {
		return err
	}
	return validateFuel("fuelLevelOut", in.FuelLevelOut)
}

func validateUpdate(in UpdateInput) error {
	if in.StartDate.IsNull() {
		return apperr.Validation("invalid dates", "startDate", "cannot be null")
	}
	if in.EndDate.IsNull() {
		return apperr.Validation("invalid dates", "endDate", "cannot be null")
	}
	if in.TotalAmount.IsNull() || (in.TotalAmount.HasValue() && in.TotalAmount.Value() <= 0) {
		return apperr.Validation("invalid total", "totalAmount", "must be > 0")
	}
	if in.PaidAmount.IsNull() || (in.PaidAmount.HasValue() && in.PaidAmount.Value() < 0) {
		return apperr.Validation("invalid paid amount", "paidAmount", "must be >= 0")
	}
	if in.DailyRate.IsNull() || (in.DailyRate.HasValue() && in.DailyRate.Value() < 0) {
		return apperr.Validation("invalid daily rate", "dailyRate", "must be >= 0")
	}
	if in.PaymentMethod.IsNull() || (in.PaymentMethod.HasValue() && !in.PaymentMethod.Value().Valid()) {
		return apperr.Validation("invalid payment method", "paymentMethod", "unknown value")
	}
	if in.PaymentStatus.IsNull() || (in.PaymentStatus.HasValue() && !in.PaymentStatus.Value().Valid()) {
		return apperr.Validation("invalid payment status", "paymentStatus", "unknown value")
	}
	if in.Status.IsNull() || (in.Status.HasValue() && !in.Status.Value().Valid()) {
		return apperr.Validation("invalid status", "status", "unknown value")
	}
	if in.Status.HasValue() && in.Status.Value() == domain.ContractStatusCompleted {
		return apperr.Validation("invalid status", "status", "use the complete operation")
	}
	if in.PickupMileage.HasValue() {
		v := in.PickupMileage.Value()
		if err := validateMileage("pickupMileage", &v); err != nil {
			return err
		}
	}
	if in.FuelLevelOut.HasValue() {
		v := in.FuelLevelOut.Value()
		return validateFuel("fuelLevelOut", &v)
	}
	return nil
}

func validateComplete(in CompleteInput) error {
	c := in.Charges
	if c.Damage < 0 || c.Cleaning < 0 || c.Late < 0 || c.Fuel < 0 {
		return apperr.Validation("invalid charges", "charges", "must be >= 0")
	}
	if in.Payment < 0 {
		return apperr.Validation("invalid payment", "payment", "must be >= 0")
	}
	if err := validateMileage("returnMileage", in.ReturnMileage); err != nil {
		return err
	}
	return validateFuel("fuelLevelIn", in.FuelLevelIn)
}

func validateMileage(field string, v *int) error {
	if v != nil && *v < 0 {
		return apperr.Validation("invalid mileage", field, "must be >= 0")
	}
	return nil
}

func validateFuel(field string, v *int) error {
	if v != nil && (*v < 0 || *v > 100) {
		return apperr.Validation("invalid fuel level", field, "must be between 0 and 100")
	}
	return nil
}
