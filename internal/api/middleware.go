package api

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmcneish/castbridge/internal/apperrors"
)

type contextKey string

const correlationIDKey contextKey = "correlationID"

// Handler adapts handlers that return errors into http.Handler.
type Handler func(w http.ResponseWriter, r *http.Request) error

// ServeHTTP implements http.Handler.
func (handler Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := handler(w, r); err != nil {
		WriteError(w, r, err)
	}
}

// CorrelationIDMiddleware tags every request with a correlation id. Commands
// are executed asynchronously after the 202 response, so the id is the only
// thread between an accepted command and the log lines its dispatch produces.
// A caller-supplied x-correlation-id is kept; otherwise one is minted.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("x-correlation-id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		w.Header().Set("x-correlation-id", correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the correlation id for the current request, or ""
// when the middleware did not run.
func GetCorrelationID(r *http.Request) string {
	if r == nil {
		return ""
	}
	correlationID, _ := r.Context().Value(correlationIDKey).(string)
	return correlationID
}

// RecovererMiddleware converts panics into 500 responses, keyed by the
// correlation id so the crash can be matched to the command that caused it.
func RecovererMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Printf("request %s panicked: %v", GetCorrelationID(r), recovered)
				WriteError(w, r, apperrors.NewInternalError("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
