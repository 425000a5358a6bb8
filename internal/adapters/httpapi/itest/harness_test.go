package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/clock"
	memcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/contractrepo"
	memcustomerrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/customerrepo"
	memidempotency "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/idempotency"
	memvehiclerepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/vehiclerepo"
	pgcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/contractrepo"
	pgcustomerrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/customerrepo"
	pgidempotency "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/idempotency"
	pgtestutil "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/testutil"
	pgvehiclerepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/vehiclerepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/contracts"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/customers"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/reconcile"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/vehicles"
	contractrepoport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
	customerrepoport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
	idempotencyport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/idempotency"
	vehiclerepoport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

// storage is the set of adapters one test server runs on.
type storage struct {
	customers customerrepoport.Repository
	vehicles  vehiclerepoport.Repository
	contracts contractrepoport.Repository
	idem      idempotencyport.Store
}

var backends = map[string]func(t *testing.T) storage{
	"memory": func(*testing.T) storage {
		cr := memcustomerrepo.NewRepo()
		vr := memvehiclerepo.NewRepo()
		return storage{
			customers: cr,
			vehicles:  vr,
			contracts: memcontractrepo.NewRepo(cr, vr),
			idem:      memidempotency.NewStore(),
		}
	},
	"postgres": func(t *testing.T) storage {
		pool := pgtestutil.OpenMigratedPool(t)
		return storage{
			customers: pgcustomerrepo.NewRepo(pool),
			vehicles:  pgvehiclerepo.NewRepo(pool),
			contracts: pgcontractrepo.NewRepo(pool),
			idem:      pgidempotency.NewStore(pool),
		}
	},
}

// eachBackend runs fn once per backend named by ITEST_BACKEND: memory
// (default), postgres, or all.
func eachBackend(t *testing.T, fn func(t *testing.T, api *client)) {
	t.Helper()
	names := []string{"memory"}
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))); v {
	case "", "memory":
	case "postgres":
		names = []string{"postgres"}
	case "all":
		names = []string{"memory", "postgres"}
	default:
		t.Fatalf("ITEST_BACKEND=%q, want memory|postgres|all", v)
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			fn(t, startServer(t, backends[name](t)))
		})
	}
}

type client struct {
	base string
	http *http.Client
}

func startServer(t *testing.T, st storage) *client {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	c := cache.New(clk, cache.WithMetrics(cache.NewMetrics(reg)))

	contractSvc := contracts.NewService(st.contracts, st.customers, st.vehicles, c, clk, contracts.WithSearchDelay(10*time.Millisecond))
	customerSvc := customers.NewService(st.customers, st.contracts, c, clk)
	t.Cleanup(contractSvc.Close)
	t.Cleanup(customerSvc.Close)

	srv := httptest.NewServer(httpapi.NewRouterWithOptions(
		httpapi.NewServer(
			contractSvc,
			customerSvc,
			vehicles.NewService(st.vehicles, clk),
			reconcile.NewService(st.contracts, st.vehicles, c, reconcile.WithRefresher(contractSvc)),
			st.idem,
			clk,
		),
		httpapi.RouterOptions{Gatherer: reg},
	))
	t.Cleanup(srv.Close)
	return &client{base: srv.URL, http: srv.Client()}
}

type response struct {
	t      *testing.T
	Status int
	Body   []byte
	Header http.Header
}

// call sends body as JSON. headers are name/value pairs.
func (c *client) call(t *testing.T, method, path string, body any, headers ...string) response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal %T: %v", body, err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+"/"+strings.TrimPrefix(path, "/"), rd)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	res, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read %s %s: %v", method, path, err)
	}
	return response{t: t, Status: res.StatusCode, Body: raw, Header: res.Header}
}

// expect fails the test unless the status matches.
func (r response) expect(status int) response {
	r.t.Helper()
	if r.Status != status {
		r.t.Fatalf("status=%d, want %d body=%s", r.Status, status, r.Body)
	}
	return r
}

// expectError checks the status and the error envelope's code.
func (r response) expectError(status int, code string) {
	r.t.Helper()
	r.expect(status)
	var env struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	decodeInto(r, &env)
	if env.Error.Code != code {
		r.t.Fatalf("error.code=%q, want %q body=%s", env.Error.Code, code, r.Body)
	}
	if env.Error.RequestID == "" || env.Error.RequestID != r.Header.Get("X-Request-Id") {
		r.t.Fatalf("error.requestId=%q, header=%q", env.Error.RequestID, r.Header.Get("X-Request-Id"))
	}
}

func decodeInto(r response, v any) {
	r.t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		r.t.Fatalf("decode %T: %v body=%s", v, err, r.Body)
	}
}

func as[T any](r response) T {
	r.t.Helper()
	var out T
	decodeInto(r, &out)
	return out
}
