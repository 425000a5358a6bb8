package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/contracts"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/customers"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/reconcile"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/vehicles"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/idempotency"
)

// Server is the HTTP adapter over the application services.
type Server struct {
	Contracts  *contracts.Service
	Customers  *customers.Service
	Vehicles   *vehicles.Service
	Reconciler *reconcile.Service
	Idem       idempotency.Store
	Clock      clock.Clock
}

func NewServer(
	contractsSvc *contracts.Service,
	customersSvc *customers.Service,
	vehiclesSvc *vehicles.Service,
	reconciler *reconcile.Service,
	idem idempotency.Store,
	clk clock.Clock,
) *Server {
	return &Server{
		Contracts:  contractsSvc,
		Customers:  customersSvc,
		Vehicles:   vehiclesSvc,
		Reconciler: reconciler,
		Idem:       idem,
		Clock:      clk,
	}
}

// decodeBody reads a JSON request body into dst. It writes a 422 and returns
// false when the body is missing or malformed.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF):
		writeValidation(w, r, "missing request body", nil)
	default:
		writeValidation(w, r, "invalid request body", map[string]any{"body": err.Error()})
	}
	return false
}

func (s *Server) Reconcile(w http.ResponseWriter, r *http.Request) {
	repair := false
	if v := r.URL.Query().Get("repair"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeValidation(w, r, "invalid query", map[string]any{"repair": "must be a boolean"})
			return
		}
		repair = b
	}
	rep, err := s.Reconciler.Run(r.Context(), repair)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcileReportFromDomain(rep))
}
