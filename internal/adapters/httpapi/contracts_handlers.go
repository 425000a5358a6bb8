package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

func (s *Server) ListContracts(w http.ResponseWriter, r *http.Request) {
	q, details := parseListQuery(r.URL.Query())
	if details != nil {
		writeValidation(w, r, "invalid query", details)
		return
	}
	p, err := s.Contracts.List(r.Context(), q.Filter, q.UseCache)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contractPageFromDomain(p))
}

func (s *Server) GetContractStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Contracts.Stats(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contractStatsFromDomain(st))
}

// SearchContracts schedules a debounced search and answers before it runs.
func (s *Server) SearchContracts(w http.ResponseWriter, r *http.Request) {
	q, details := parseListQuery(r.URL.Query())
	if details != nil {
		writeValidation(w, r, "invalid query", details)
		return
	}
	var body SearchRequest
	if !decodeBody(w, r, &body) {
		return
	}
	s.Contracts.Search(r.Context(), body.Search, q.Filter)
	writeJSON(w, http.StatusAccepted, SearchAccepted{Search: domain.NormalizeSearch(body.Search)})
}

func (s *Server) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := s.Contracts.Get(r.Context(), domain.ContractID(chi.URLParam(r, "contractId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractResponse{Contract: contractFromDomain(c)})
}

func (s *Server) CreateContract(w http.ResponseWriter, r *http.Request) {
	var body CreateContractRequest
	if !decodeBody(w, r, &body) {
		return
	}
	call, handled := s.beginIdempotent(w, r, "/contracts", body)
	if handled {
		return
	}

	c, err := s.Contracts.Create(r.Context(), createContractInputFromDTO(body))
	if err != nil && sideEffectWarning(err) == nil {
		writeAppError(w, r, err)
		return
	}
	s.respond(w, r, call, http.StatusCreated, ContractResponse{
		Contract: contractFromDomain(c),
		Warning:  sideEffectWarning(err),
	})
}

func (s *Server) UpdateContract(w http.ResponseWriter, r *http.Request) {
	var body UpdateContractRequest
	if !decodeBody(w, r, &body) {
		return
	}
	c, err := s.Contracts.Update(r.Context(), domain.ContractID(chi.URLParam(r, "contractId")), updateContractInputFromDTO(body))
	writeMutation(w, r, c, err)
}

func (s *Server) CompleteContract(w http.ResponseWriter, r *http.Request) {
	var body CompleteContractRequest
	if !decodeBody(w, r, &body) {
		return
	}
	c, err := s.Contracts.Complete(r.Context(), domain.ContractID(chi.URLParam(r, "contractId")), completeContractInputFromDTO(body))
	writeMutation(w, r, c, err)
}

func (s *Server) DeleteContract(w http.ResponseWriter, r *http.Request) {
	err := s.Contracts.Delete(r.Context(), domain.ContractID(chi.URLParam(r, "contractId")))
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if warn := sideEffectWarning(err); warn != nil {
		writeJSON(w, http.StatusOK, struct {
			Warning *Warning `json:"warning"`
		}{Warning: warn})
		return
	}
	writeAppError(w, r, err)
}

func writeMutation(w http.ResponseWriter, r *http.Request, c domain.Contract, err error) {
	warn := sideEffectWarning(err)
	if err != nil && warn == nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractResponse{Contract: contractFromDomain(c), Warning: warn})
}
