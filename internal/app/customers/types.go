package customers

import (
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/patch"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

type CreateInput struct {
	FullName string
	Phone    string

	Email         *string
	NationalID    *string
	DriverLicense *string
	Address       *string
	Notes         *string

	// Status defaults to active.
	Status domain.CustomerStatus
}

type UpdateInput struct {
	// FullName and Phone are optional and cannot be null.
	FullName patch.Optional[string]
	Phone    patch.Optional[string]

	Email         patch.Optional[string]
	NationalID    patch.Optional[string]
	DriverLicense patch.Optional[string]
	Address       patch.Optional[string]
	Notes         patch.Optional[string]

	Status patch.Optional[domain.CustomerStatus]
}
