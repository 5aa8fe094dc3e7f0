// Package notify is the command ingress: HTTP POST for one-shot commands
// and a WebSocket endpoint the voice front end keeps open to push command
// envelopes over.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmcneish/castbridge/internal/api"
	"github.com/jmcneish/castbridge/internal/apperrors"
	"github.com/jmcneish/castbridge/internal/dispatcher"
)

// Service owns the ingress routes and the WebSocket subscriber set.
type Service struct {
	dispatcher *dispatcher.Dispatcher
	logger     *log.Logger
	hub        *hub
}

// NewService creates the ingress service.
func NewService(d *dispatcher.Dispatcher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		dispatcher: d,
		logger:     logger,
		hub:        newHub(logger),
	}
}

// Routes mounts the ingress endpoints.
func (s *Service) Routes(r chi.Router) {
	r.Method(http.MethodPost, "/commands", api.Handler(s.handleCommand))
	r.Method(http.MethodGet, "/commands/ws", api.Handler(s.handleWebSocket))
}

// handleCommand accepts one envelope and dispatches it asynchronously.
// Delivery is fire-and-forget: the sender gets a 202 and never an outcome.
func (s *Service) handleCommand(w http.ResponseWriter, r *http.Request) error {
	var env dispatcher.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return apperrors.NewValidationError("Invalid command envelope: "+err.Error(), nil)
	}
	if env.Room == "" {
		return apperrors.NewValidationError("Command envelope requires a room", nil)
	}
	if env.Command == "" {
		return apperrors.NewValidationError("Command envelope requires a command", nil)
	}

	correlationID := api.GetCorrelationID(r)
	s.logger.Printf("Accepted command %s for room %s (%s)", env.Command, env.Room, correlationID)
	// The request context dies with this handler; dispatch runs on its
	// own deadline.
	go s.dispatcher.Dispatch(context.Background(), env)

	return api.WriteJSON(w, http.StatusAccepted, map[string]any{
		"status":        "accepted",
		"correlationId": correlationID,
		"acceptedAt":    api.RFC3339Millis(time.Now()),
	})
}

// Close shuts down every open subscriber connection.
func (s *Service) Close() {
	s.hub.closeAll()
}
