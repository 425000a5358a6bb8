package domain

// ContractID is an internal identifier for a rental contract record.
type ContractID string

// CustomerID is an internal identifier for a customer record.
type CustomerID string

// VehicleID is an internal identifier for a fleet vehicle record.
// Vehicles are owned by the fleet subsystem; this module only references them.
type VehicleID string
