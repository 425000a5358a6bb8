package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/idempotency"
)

const (
	selectRecord = `SELECT status_code, content_type, body, created_at FROM idempotency_keys
WHERE idempotency_key = $1 AND method = $2 AND route = $3 AND body_hash = $4`

	upsertRecord = `INSERT INTO idempotency_keys
	(idempotency_key, method, route, body_hash, status_code, content_type, body, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (idempotency_key, method, route, body_hash) DO UPDATE
SET status_code = EXCLUDED.status_code,
	content_type = EXCLUDED.content_type,
	body = EXCLUDED.body,
	created_at = EXCLUDED.created_at`

	deleteBefore = `DELETE FROM idempotency_keys WHERE created_at < $1`
)

var errNilPool = errors.New("idempotency: nil postgres pool")

// Store keeps replay records in the idempotency_keys table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errNilPool
	}
	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, selectRecord, fingerprintArgs(fp)...).
		Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return idempotency.Record{}, false, nil
	case err != nil:
		return idempotency.Record{}, false, fmt.Errorf("get idempotency record: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errNilPool
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Body == nil {
		rec.Body = []byte{}
	}
	args := append(fingerprintArgs(fp), rec.StatusCode, rec.ContentType, rec.Body, rec.CreatedAt.UTC())
	if _, err := s.pool.Exec(ctx, upsertRecord, args...); err != nil {
		return fmt.Errorf("put idempotency record: %w", err)
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	if s.pool == nil {
		return 0, errNilPool
	}
	tag, err := s.pool.Exec(ctx, deleteBefore, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge idempotency records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func fingerprintArgs(fp idempotency.Fingerprint) []any {
	return []any{string(fp.Key), fp.Method, fp.Route, fp.BodyHash}
}
