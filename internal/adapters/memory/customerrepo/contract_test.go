package customerrepo

import (
	"testing"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/contracttest"
	customerrepoport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
)

func TestContract_CustomerRepo(t *testing.T) {
	contracttest.RunCustomerRepo(t, func(t *testing.T) (customerrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
