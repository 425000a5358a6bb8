package vehiclerepo

import (
	"testing"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/testutil"
	vehiclerepoport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

func TestContract_PostgresVehicleRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunVehicleRepo(t, func(t *testing.T) (vehiclerepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
