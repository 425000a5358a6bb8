package contractrepo

import (
	"testing"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/contracttest"
	memcustomerrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/customerrepo"
	memvehiclerepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/vehiclerepo"
)

func TestContract_ContractRepo(t *testing.T) {
	contracttest.RunContractRepo(t, func(t *testing.T) (contracttest.Stores, func()) {
		t.Helper()
		customers := memcustomerrepo.NewRepo()
		vehicles := memvehiclerepo.NewRepo()
		return contracttest.Stores{
			Customers: customers,
			Vehicles:  vehicles,
			Contracts: NewRepo(customers, vehicles),
		}, nil
	})
}
