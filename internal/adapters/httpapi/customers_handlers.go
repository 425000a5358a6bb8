package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

func (s *Server) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q, details := parseListQuery(r.URL.Query())
	if details != nil {
		writeValidation(w, r, "invalid query", details)
		return
	}
	p, err := s.Customers.List(r.Context(), q.Filter, q.UseCache)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customerPageFromDomain(p))
}

func (s *Server) GetCustomerStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Customers.Stats(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customerStatsFromDomain(st))
}

func (s *Server) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	q, details := parseListQuery(r.URL.Query())
	if details != nil {
		writeValidation(w, r, "invalid query", details)
		return
	}
	var body SearchRequest
	if !decodeBody(w, r, &body) {
		return
	}
	s.Customers.Search(r.Context(), body.Search, q.Filter)
	writeJSON(w, http.StatusAccepted, SearchAccepted{Search: domain.NormalizeSearch(body.Search)})
}

func (s *Server) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.Customers.Get(r.Context(), domain.CustomerID(chi.URLParam(r, "customerId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CustomerResponse{Customer: customerFromDomain(c)})
}

func (s *Server) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var body CreateCustomerRequest
	if !decodeBody(w, r, &body) {
		return
	}
	c, err := s.Customers.Create(r.Context(), createCustomerInputFromDTO(body))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CustomerResponse{Customer: customerFromDomain(c)})
}

func (s *Server) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var body UpdateCustomerRequest
	if !decodeBody(w, r, &body) {
		return
	}
	c, err := s.Customers.Update(r.Context(), domain.CustomerID(chi.URLParam(r, "customerId")), updateCustomerInputFromDTO(body))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CustomerResponse{Customer: customerFromDomain(c)})
}

func (s *Server) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := s.Customers.Delete(r.Context(), domain.CustomerID(chi.URLParam(r, "customerId"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
