package contractrepo

import (
	"testing"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/customerrepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/testutil"
	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/vehiclerepo"
)

func TestContract_PostgresContractRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunContractRepo(t, func(t *testing.T) (contracttest.Stores, func()) {
		t.Helper()
		return contracttest.Stores{
			Customers: customerrepo.NewRepo(pool),
			Vehicles:  vehiclerepo.NewRepo(pool),
			Contracts: NewRepo(pool),
		}, nil
	})
}
