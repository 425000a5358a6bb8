package customerrepo

import "errors"

var (
	ErrNotFound      = errors.New("customer not found")
	ErrAlreadyExists = errors.New("customer already exists")
	// ErrReferenced is returned by Delete when stores that enforce foreign
	// keys still hold contracts for the customer.
	ErrReferenced = errors.New("customer is referenced by contracts")
)
