package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
)

type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Warning accompanies a record whose mutation persisted while a dependent
// vehicle update failed.
type Warning struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func errorBody(r *http.Request, code string, message string, details map[string]any) ErrorResponse {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	return er
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, errorBody(r, code, message, details))
}

func writeValidation(w http.ResponseWriter, r *http.Request, message string, details map[string]any) {
	writeError(w, r, http.StatusUnprocessableEntity, apperr.CodeValidation, message, details)
}

// writeAppError maps an application error to its response. Errors outside the
// taxonomy become a 500 and are logged.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if ae, ok := apperr.As(err); ok && ae.Kind != apperr.KindSideEffectFailure {
		if ae.Retryable() {
			w.Header().Set("Retry-After", "1")
		}
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	logger.Error(r.Context(), "unhandled error", "error", err)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

// sideEffectWarning returns the warning for a partially applied mutation, or
// nil when err is not a side-effect failure.
func sideEffectWarning(err error) *Warning {
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindSideEffectFailure {
		return nil
	}
	return &Warning{Code: ae.Code, Message: ae.Message, Details: ae.Details}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
