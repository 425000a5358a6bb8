package vehiclerepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

// Repo is a Postgres implementation of vehiclerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, v domain.Vehicle) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(v.ID))
	if err != nil {
		return fmt.Errorf("invalid vehicle id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO vehicles (id, plate_number, make, model, year, status, mileage, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		id,
		v.PlateNumber,
		v.Make,
		v.Model,
		v.Year,
		string(v.Status),
		v.Mileage,
		v.CreatedAt.UTC(),
		v.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return vehiclerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error) {
	if r.pool == nil {
		return domain.Vehicle{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return scanVehicle(r.pool.QueryRow(ctx, `
		SELECT id, plate_number, make, model, year, status, mileage, created_at, updated_at
		FROM vehicles
		WHERE id = $1
	`, uid))
}

func (r *Repo) SetStatus(ctx context.Context, id domain.VehicleID, status domain.VehicleStatus) error {
	return r.exec(ctx, id, `UPDATE vehicles SET status = $2, updated_at = now() WHERE id = $1`, string(status))
}

func (r *Repo) RecordMileage(ctx context.Context, id domain.VehicleID, mileage int) error {
	return r.exec(ctx, id, `UPDATE vehicles SET mileage = GREATEST(mileage, $2), updated_at = now() WHERE id = $1`, mileage)
}

func (r *Repo) ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, plate_number, make, model, year, status, mileage, created_at, updated_at
		FROM vehicles
		WHERE status = $1
		ORDER BY plate_number ASC, id ASC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) exec(ctx context.Context, id domain.VehicleID, sql string, arg any) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return vehiclerepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, sql, uid, arg)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return vehiclerepo.ErrNotFound
	}
	return nil
}

func scanVehicle(row pgx.Row) (domain.Vehicle, error) {
	var (
		id     uuid.UUID
		v      domain.Vehicle
		status string
	)
	if err := row.Scan(&id, &v.PlateNumber, &v.Make, &v.Model, &v.Year, &status, &v.Mileage, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vehicle{}, vehiclerepo.ErrNotFound
		}
		return domain.Vehicle{}, err
	}
	v.ID = domain.VehicleID(id.String())
	v.Status = domain.VehicleStatus(status)
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}
