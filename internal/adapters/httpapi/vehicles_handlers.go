package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/vehicles"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

func (s *Server) GetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.Vehicles.Get(r.Context(), domain.VehicleID(chi.URLParam(r, "vehicleId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicleFromDomain(v))
}

func (s *Server) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var body CreateVehicleRequest
	if !decodeBody(w, r, &body) {
		return
	}
	in := vehicles.CreateInput{
		PlateNumber: body.PlateNumber,
		Make:        body.Make,
		Model:       body.Model,
		Year:        body.Year,
		Mileage:     body.Mileage,
	}
	if body.Status != nil {
		in.Status = domain.VehicleStatus(*body.Status)
	}
	v, err := s.Vehicles.Create(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicleFromDomain(v))
}
