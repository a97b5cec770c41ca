package web

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"transwise/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorMapping maps a core sentinel to its HTTP status and error code.
type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{core.ErrInvalidScope, http.StatusBadRequest, "INVALID_SCOPE"},
	{core.ErrInvalidBooking, http.StatusBadRequest, "INVALID_BOOKING"},
	{core.ErrDuplicateLRNumber, http.StatusConflict, "DUPLICATE_LR_NUMBER"},
	{core.ErrBookingNotFound, http.StatusNotFound, "NOT_FOUND"},
	{core.ErrAllocationFailed, http.StatusServiceUnavailable, "ALLOCATION_FAILED"},
	{core.ErrQueryFailed, http.StatusServiceUnavailable, "QUERY_FAILED"},
}

// writeServiceError translates an ApplicationService error into the JSON envelope.
// Unknown errors are logged and reported as 500 without their detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				h.logger.Warn("request failed",
					zap.String("request_id", requestIDFromContext(r.Context())),
					zap.String("code", m.code),
					zap.Error(err))
			}
			writeError(w, r, err.Error(), m.code, m.status)
			return
		}
	}
	h.logger.Error("unhandled error",
		zap.String("request_id", requestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
}
