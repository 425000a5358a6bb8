package vehiclerepo

import "errors"

var (
	ErrNotFound      = errors.New("vehicle not found")
	ErrAlreadyExists = errors.New("vehicle already exists")
)
