package idempotency

import (
	"context"
	"time"
)

// Key is the Idempotency-Key request header value.
type Key string

// Fingerprint names one request for replay: the caller's key, the method and
// route template (e.g. POST "/contracts") and a hash of the canonical body.
// A fingerprint with an empty BodyHash marks which body first claimed the key.
type Fingerprint struct {
	Key      Key
	Method   string
	Route    string
	BodyHash string
}

// Record is the response replayed for a repeated request. StatusCode 0 marks
// a key claim that has no response yet.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store keeps records so a retried contract creation replays the first
// response instead of booking the vehicle twice.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	// Put inserts or replaces the record for fp.
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	// Purge deletes records created before cutoff and reports how many went.
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}
