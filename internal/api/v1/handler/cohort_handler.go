package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"tutorhub/internal/api/v1/dto"
	"tutorhub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CohortHandler receives roster registrations pushed by Pub/Sub, and the
// ones Pub/Sub dead-lettered after repeated failures.
type CohortHandler struct {
	rosterService service.RosterService
	dlqService    service.DLQService
	logger        zerolog.Logger
}

func NewCohortHandler(rosterService service.RosterService, dlqService service.DLQService, logger zerolog.Logger) *CohortHandler {
	return &CohortHandler{
		rosterService: rosterService,
		dlqService:    dlqService,
		logger:        logger.With().Str("handler", "CohortHandler").Logger(),
	}
}

// RegisterRoutes mounts the push endpoints behind the Pub/Sub auth middleware.
func (h *CohortHandler) RegisterRoutes(r chi.Router, pubsubAuthMw func(http.Handler) http.Handler) {
	r.With(pubsubAuthMw).Post("/cohorts/registrations", h.handleRegistration)
	r.With(pubsubAuthMw).Post("/cohorts/registrations/dlq", h.handleDeadLetter)
}

// handleRegistration answers 204 on success; any non-2xx makes Pub/Sub
// redeliver the message.
func (h *CohortHandler) handleRegistration(w http.ResponseWriter, r *http.Request) {
	var push dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode Pub/Sub push request")
		writeError(w, http.StatusBadRequest, "Invalid Pub/Sub push payload")
		return
	}
	log := h.logger.With().Str("message_id", push.Message.MessageID).Str("subscription", push.Subscription).Logger()

	var entry service.RosterEntry
	if err := json.Unmarshal(push.Message.Data, &entry); err != nil {
		log.Warn().Err(err).Msg("Failed to decode roster entry")
		writeError(w, http.StatusBadRequest, "Invalid roster entry")
		return
	}

	created, err := h.rosterService.Register(r.Context(), entry)
	switch {
	case errors.Is(err, service.ErrInvalidRoster):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrCohortNotFound):
		writeError(w, http.StatusNotFound, "Cohort not found")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to register roster entry")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	log.Info().Str("cohort_id", entry.CohortID).Bool("created", created).Msg("Roster registration processed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *CohortHandler) handleDeadLetter(w http.ResponseWriter, r *http.Request) {
	var push dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode Pub/Sub push request")
		writeError(w, http.StatusBadRequest, "Invalid Pub/Sub push payload")
		return
	}
	err := h.dlqService.Save(r.Context(), push.Subscription, push.Message.MessageID, push.Message.Data, push.Message.Attributes)
	if err != nil {
		h.logger.Error().Err(err).Str("message_id", push.Message.MessageID).Msg("Failed to store dead-lettered message")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
