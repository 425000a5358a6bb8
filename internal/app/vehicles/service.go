// Package vehicles exposes the minimal fleet operations the console needs:
// registering a vehicle and reading it back.
package vehicles

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

const (
	codeNotFound = "VEHICLE_NOT_FOUND"
	codeConflict = "VEHICLE_CONFLICT"
)

type CreateInput struct {
	PlateNumber string
	Make        string
	Model       string
	Year        int
	// Status defaults to available.
	Status  domain.VehicleStatus
	Mileage int
}

type Service struct {
	repo  vehiclerepo.Repository
	clock clock.Clock

	newVehicleID func() domain.VehicleID
}

func NewService(repo vehiclerepo.Repository, clk clock.Clock) *Service {
	return &Service{
		repo:  repo,
		clock: clk,
		newVehicleID: func() domain.VehicleID {
			return domain.VehicleID(uuid.NewString())
		},
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Vehicle, error) {
	plate := strings.ToUpper(domain.NormalizeHumanName(in.PlateNumber))
	switch {
	case plate == "":
		return domain.Vehicle{}, apperr.Validation("invalid plate number", "plateNumber", "required")
	case in.Year < 0:
		return domain.Vehicle{}, apperr.Validation("invalid year", "year", "must be >= 0")
	case in.Mileage < 0:
		return domain.Vehicle{}, apperr.Validation("invalid mileage", "mileage", "must be >= 0")
	case in.Status != "" && !in.Status.Valid():
		return domain.Vehicle{}, apperr.Validation("invalid status", "status", "unknown value")
	}

	now := s.clock.Now()
	v := domain.Vehicle{
		ID:          s.newVehicleID(),
		PlateNumber: plate,
		Make:        strings.TrimSpace(in.Make),
		Model:       strings.TrimSpace(in.Model),
		Year:        in.Year,
		Status:      in.Status,
		Mileage:     in.Mileage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if v.Status == "" {
		v.Status = domain.VehicleStatusAvailable
	}
	if err := s.repo.Create(ctx, v); err != nil {
		if errors.Is(err, vehiclerepo.ErrAlreadyExists) {
			return domain.Vehicle{}, apperr.Conflict(codeConflict, "vehicle already exists")
		}
		logger.Error(ctx, "create vehicle failed", "error", err)
		return domain.Vehicle{}, apperr.Store("insert vehicle", err)
	}
	logger.Info(ctx, "vehicle registered", "vehicle_id", string(v.ID), "plate_number", v.PlateNumber)
	return v, nil
}

func (s *Service) Get(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return domain.Vehicle{}, apperr.NotFound(codeNotFound, "vehicle not found")
		}
		return domain.Vehicle{}, apperr.Store("load vehicle", err)
	}
	return v, nil
}
