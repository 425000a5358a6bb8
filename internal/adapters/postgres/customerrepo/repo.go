package customerrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
)

// Repo is a Postgres implementation of customerrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectColumns = `
	SELECT
		cu.id,
		cu.full_name,
		cu.phone,
		cu.email,
		cu.national_id,
		cu.driver_license,
		cu.address,
		cu.notes,
		cu.status,
		cu.created_at,
		cu.updated_at
	FROM customers cu`

func (r *Repo) Create(ctx context.Context, c domain.Customer) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(c.ID))
	if err != nil {
		return fmt.Errorf("invalid customer id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO customers (
			id,
			full_name,
			phone,
			email,
			national_id,
			driver_license,
			address,
			notes,
			status,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		id,
		c.FullName,
		c.Phone,
		c.Email,
		c.NationalID,
		c.DriverLicense,
		c.Address,
		c.Notes,
		string(c.Status),
		c.CreatedAt.UTC(),
		c.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return customerrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, c domain.Customer) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(c.ID))
	if err != nil {
		return customerrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET full_name = $2,
		    phone = $3,
		    email = $4,
		    national_id = $5,
		    driver_license = $6,
		    address = $7,
		    notes = $8,
		    status = $9,
		    updated_at = $10
		WHERE id = $1
	`,
		id,
		c.FullName,
		c.Phone,
		c.Email,
		c.NationalID,
		c.DriverLicense,
		c.Address,
		c.Notes,
		string(c.Status),
		c.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return customerrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.CustomerID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return customerrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, uid)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return customerrepo.ErrReferenced
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return customerrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.CustomerID) (domain.Customer, error) {
	if r.pool == nil {
		return domain.Customer{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Customer{}, customerrepo.ErrNotFound
	}
	return scanCustomer(r.pool.QueryRow(ctx, selectColumns+` WHERE cu.id = $1`, uid))
}

func (r *Repo) Count(ctx context.Context, f domain.Filter) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	w, err := predicates(f.Normalized())
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM customers cu`+w.SQL(), w.Args()...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repo) List(ctx context.Context, f domain.Filter) ([]domain.Customer, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	n := f.Normalized()
	w, err := predicates(n)
	if err != nil {
		return nil, err
	}
	win := n.Window()
	query := selectColumns + w.SQL() + orderBy(n) + fmt.Sprintf(" LIMIT %d OFFSET %d", win.Limit, win.Offset)

	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Customer, 0, win.Limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func predicates(f domain.Filter) (*postgres.Where, error) {
	w := &postgres.Where{}
	if f.Search != "" {
		w.Add(`(cu.full_name ILIKE %[1]s OR cu.phone ILIKE %[1]s OR cu.email ILIKE %[1]s OR cu.national_id ILIKE %[1]s)`, postgres.LikePattern(f.Search))
	}
	if len(f.Statuses) > 0 {
		w.Add(`cu.status = ANY(%s)`, f.Statuses)
	}
	if f.CustomerID != "" {
		uid, err := uuid.Parse(f.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer id filter: %w", err)
		}
		w.Add(`cu.id = %s`, uid)
	}
	if f.From != nil {
		w.Add(`cu.created_at >= %s`, *f.From)
	}
	if f.To != nil {
		w.Add(`cu.created_at < %s`, f.To.AddDate(0, 0, 1))
	}
	return w, nil
}

func orderBy(f domain.Filter) string {
	col := f.SortBy
	if !customerrepo.SortColumns[col] || col == "" {
		return ` ORDER BY cu.created_at DESC, cu.id DESC`
	}
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}
	expr := "cu." + col
	if col == "full_name" {
		expr = "lower(cu.full_name)"
	}
	return fmt.Sprintf(` ORDER BY %s %s, cu.id %s`, expr, dir, dir)
}

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var (
		id     uuid.UUID
		c      domain.Customer
		status string
	)
	if err := row.Scan(
		&id,
		&c.FullName,
		&c.Phone,
		&c.Email,
		&c.NationalID,
		&c.DriverLicense,
		&c.Address,
		&c.Notes,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, customerrepo.ErrNotFound
		}
		return domain.Customer{}, err
	}
	c.ID = domain.CustomerID(id.String())
	c.Status = domain.CustomerStatus(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}
