package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"tutorhub/internal/api/v1/dto"
	"tutorhub/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorResponseDTO{Message: message})
}

// writeServiceError maps service errors to their HTTP status. Anything
// unrecognised is logged and reported as a 500 without details.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var denied *service.AccessDeniedError
	switch {
	case errors.As(err, &denied):
		writeError(w, denied.Status, denied.Message)
	case errors.Is(err, service.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, "Invalid course identifier")
	case errors.Is(err, service.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "Course not found")
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	default:
		logger.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
