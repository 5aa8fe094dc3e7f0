package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jmcneish/castbridge/internal/apperrors"
)

// ErrorResponse wraps an error body for the wire.
type ErrorResponse struct {
	Error apperrors.ErrorBody `json:"error"`
}

// WriteJSON sends a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError serializes an error into the standard error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.EnsureAppError(err)
	if appErr.StatusCode >= 500 {
		log.Printf("request %s failed: %s %v", GetCorrelationID(r), appErr.Code, appErr.Message)
	}
	_ = WriteJSON(w, appErr.StatusCode, ErrorResponse{Error: appErr.ErrorBody()})
}

// RFC3339Millis formats a timestamp with millisecond precision.
func RFC3339Millis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
