package idempotency

import (
	"testing"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/idempotency"
)

func TestContract_IdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotency.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
