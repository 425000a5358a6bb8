package contractrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
)

// Repo is a Postgres implementation of contractrepo.Repository.
// Count and List share one FROM/WHERE so totals and windows always agree.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const fromJoined = `
	FROM contracts c
	LEFT JOIN customers cu ON cu.id = c.customer_id
	LEFT JOIN vehicles v ON v.id = c.vehicle_id`

const selectColumns = `
	SELECT
		c.id,
		c.contract_number,
		c.customer_id,
		c.vehicle_id,
		c.start_date,
		c.end_date,
		c.daily_rate,
		c.total_amount,
		c.deposit_amount,
		c.paid_amount,
		c.remaining_amount,
		c.additional_charges,
		c.damage_charges,
		c.cleaning_charges,
		c.late_charges,
		c.fuel_charges,
		c.payment_method,
		c.payment_status,
		c.status,
		c.pickup_mileage,
		c.return_mileage,
		c.fuel_level_out,
		c.fuel_level_in,
		c.returned_at,
		c.notes,
		c.created_at,
		c.updated_at,
		cu.id,
		cu.full_name,
		cu.phone,
		cu.email,
		v.id,
		v.plate_number,
		v.make,
		v.model,
		v.status`

func (r *Repo) Create(ctx context.Context, c domain.Contract) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ids, err := parseIDs(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO contracts (
			id,
			contract_number,
			customer_id,
			vehicle_id,
			start_date,
			end_date,
			daily_rate,
			total_amount,
			deposit_amount,
			paid_amount,
			remaining_amount,
			additional_charges,
			damage_charges,
			cleaning_charges,
			late_charges,
			fuel_charges,
			payment_method,
			payment_status,
			status,
			pickup_mileage,
			return_mileage,
			fuel_level_out,
			fuel_level_in,
			returned_at,
			notes,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
	`,
		ids.contract,
		c.ContractNumber,
		ids.customer,
		ids.vehicle,
		toDate(c.StartDate),
		toDate(c.EndDate),
		int64(c.DailyRate),
		int64(c.TotalAmount),
		int64(c.DepositAmount),
		int64(c.PaidAmount),
		int64(c.RemainingAmount),
		int64(c.AdditionalCharges),
		int64(c.Charges.Damage),
		int64(c.Charges.Cleaning),
		int64(c.Charges.Late),
		int64(c.Charges.Fuel),
		string(c.PaymentMethod),
		string(c.PaymentStatus),
		string(c.Status),
		c.PickupMileage,
		c.ReturnMileage,
		c.FuelLevelOut,
		c.FuelLevelIn,
		utcPtr(c.ReturnedAt),
		c.Notes,
		c.CreatedAt.UTC(),
		c.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return contractrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, c domain.Contract) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(c.ID))
	if err != nil {
		return contractrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE contracts
		SET start_date = $2,
		    end_date = $3,
		    daily_rate = $4,
		    total_amount = $5,
		    deposit_amount = $6,
		    paid_amount = $7,
		    remaining_amount = $8,
		    additional_charges = $9,
		    damage_charges = $10,
		    cleaning_charges = $11,
		    late_charges = $12,
		    fuel_charges = $13,
		    payment_method = $14,
		    payment_status = $15,
		    status = $16,
		    pickup_mileage = $17,
		    return_mileage = $18,
		    fuel_level_out = $19,
		    fuel_level_in = $20,
		    returned_at = $21,
		    notes = $22,
		    updated_at = $23
		WHERE id = $1
	`,
		id,
		toDate(c.StartDate),
		toDate(c.EndDate),
		int64(c.DailyRate),
		int64(c.TotalAmount),
		int64(c.DepositAmount),
		int64(c.PaidAmount),
		int64(c.RemainingAmount),
		int64(c.AdditionalCharges),
		int64(c.Charges.Damage),
		int64(c.Charges.Cleaning),
		int64(c.Charges.Late),
		int64(c.Charges.Fuel),
		string(c.PaymentMethod),
		string(c.PaymentStatus),
		string(c.Status),
		c.PickupMileage,
		c.ReturnMileage,
		c.FuelLevelOut,
		c.FuelLevelIn,
		utcPtr(c.ReturnedAt),
		c.Notes,
		c.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return contractrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.ContractID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return contractrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return contractrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ContractID, h contractrepo.Hydration) (domain.Contract, error) {
	if r.pool == nil {
		return domain.Contract{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Contract{}, contractrepo.ErrNotFound
	}
	c, err := scanContract(r.pool.QueryRow(ctx, selectColumns+fromJoined+` WHERE c.id = $1`, uid), h)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contract{}, contractrepo.ErrNotFound
		}
		return domain.Contract{}, err
	}
	return c, nil
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
	if err := r.pool.QueryRow(ctx, `SELECT count(*)`+fromJoined+w.SQL(), w.Args()...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repo) List(ctx context.Context, f domain.Filter, h contractrepo.Hydration) ([]domain.Contract, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	n := f.Normalized()
	w, err := predicates(n)
	if err != nil {
		return nil, err
	}
	win := n.Window()
	query := selectColumns + fromJoined + w.SQL() + orderBy(n) + fmt.Sprintf(" LIMIT %d OFFSET %d", win.Limit, win.Offset)

	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Contract, 0, win.Limit)
	for rows.Next() {
		c, err := scanContract(rows, h)
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
		w.Add(`(c.contract_number ILIKE %[1]s OR cu.full_name ILIKE %[1]s OR v.plate_number ILIKE %[1]s)`, postgres.LikePattern(f.Search))
	}
	if len(f.Statuses) > 0 {
		w.Add(`c.status = ANY(%s)`, f.Statuses)
	}
	if len(f.PaymentStatuses) > 0 {
		w.Add(`c.payment_status = ANY(%s)`, f.PaymentStatuses)
	}
	if f.CustomerID != "" {
		uid, err := uuid.Parse(f.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer id filter: %w", err)
		}
		w.Add(`c.customer_id = %s`, uid)
	}
	if f.VehicleID != "" {
		uid, err := uuid.Parse(f.VehicleID)
		if err != nil {
			return nil, fmt.Errorf("invalid vehicle id filter: %w", err)
		}
		w.Add(`c.vehicle_id = %s`, uid)
	}
	if f.From != nil {
		w.Add(`c.start_date >= %s`, toDate(*f.From))
	}
	if f.To != nil {
		w.Add(`c.start_date <= %s`, toDate(*f.To))
	}
	return w, nil
}

func orderBy(f domain.Filter) string {
	col := f.SortBy
	if col == "" || !contractrepo.SortColumns[col] {
		return ` ORDER BY c.created_at DESC, c.id DESC`
	}
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf(` ORDER BY c.%s %s, c.id %s`, col, dir, dir)
}

type contractIDs struct {
	contract uuid.UUID
	customer uuid.UUID
	vehicle  uuid.UUID
}

func parseIDs(c domain.Contract) (contractIDs, error) {
	var (
		ids contractIDs
		err error
	)
	if ids.contract, err = uuid.Parse(string(c.ID)); err != nil {
		return ids, fmt.Errorf("invalid contract id: %w", err)
	}
	if ids.customer, err = uuid.Parse(string(c.CustomerID)); err != nil {
		return ids, fmt.Errorf("invalid customer id: %w", err)
	}
	if ids.vehicle, err = uuid.Parse(string(c.VehicleID)); err != nil {
		return ids, fmt.Errorf("invalid vehicle id: %w", err)
	}
	return ids, nil
}

func scanContract(row pgx.Row, h contractrepo.Hydration) (domain.Contract, error) {
	var (
		c                              domain.Contract
		id, customerID, vehicleID      uuid.UUID
		start, end                     pgtype.Date
		daily, total, deposit, paid    int64
		remaining, additional          int64
		damage, cleaning, late, fuel   int64
		method, payStatus, status      string
		returnedAt                     *time.Time
		cuID                           *uuid.UUID
		cuName, cuPhone, cuEmail       *string
		vID                            *uuid.UUID
		vPlate, vMake, vModel, vStatus *string
	)
	if err := row.Scan(
		&id,
		&c.ContractNumber,
		&customerID,
		&vehicleID,
		&start,
		&end,
		&daily,
		&total,
		&deposit,
		&paid,
		&remaining,
		&additional,
		&damage,
		&cleaning,
		&late,
		&fuel,
		&method,
		&payStatus,
		&status,
		&c.PickupMileage,
		&c.ReturnMileage,
		&c.FuelLevelOut,
		&c.FuelLevelIn,
		&returnedAt,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
		&cuID,
		&cuName,
		&cuPhone,
		&cuEmail,
		&vID,
		&vPlate,
		&vMake,
		&vModel,
		&vStatus,
	); err != nil {
		return domain.Contract{}, err
	}

	c.ID = domain.ContractID(id.String())
	c.CustomerID = domain.CustomerID(customerID.String())
	c.VehicleID = domain.VehicleID(vehicleID.String())
	c.StartDate = fromDate(start)
	c.EndDate = fromDate(end)
	c.DailyRate = domain.Money(daily)
	c.TotalAmount = domain.Money(total)
	c.DepositAmount = domain.Money(deposit)
	c.PaidAmount = domain.Money(paid)
	c.RemainingAmount = domain.Money(remaining)
	c.AdditionalCharges = domain.Money(additional)
	c.Charges = domain.ReturnCharges{
		Damage:   domain.Money(damage),
		Cleaning: domain.Money(cleaning),
		Late:     domain.Money(late),
		Fuel:     domain.Money(fuel),
	}
	c.PaymentMethod = domain.PaymentMethod(method)
	c.PaymentStatus = domain.PaymentStatus(payStatus)
	c.Status = domain.ContractStatus(status)
	c.ReturnedAt = utcPtr(returnedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	if h.Customer && cuID != nil {
		c.Customer = &domain.CustomerRef{
			ID:       domain.CustomerID(cuID.String()),
			FullName: deref(cuName),
			Phone:    deref(cuPhone),
			Email:    cuEmail,
		}
	}
	if h.Vehicle && vID != nil {
		c.Vehicle = &domain.VehicleRef{
			ID:          domain.VehicleID(vID.String()),
			PlateNumber: deref(vPlate),
			Make:        deref(vMake),
			Model:       deref(vModel),
			Status:      domain.VehicleStatus(deref(vStatus)),
		}
	}
	return c, nil
}

func toDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: domain.Day(t), Valid: true}
}

func fromDate(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return domain.Day(d.Time)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
