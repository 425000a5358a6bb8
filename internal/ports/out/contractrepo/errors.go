package contractrepo

import "errors"

var (
	// ErrNotFound indicates the requested contract does not exist.
	ErrNotFound = errors.New("contract not found")

	// ErrAlreadyExists indicates a contract already exists with the provided ID.
	ErrAlreadyExists = errors.New("contract already exists")
)
