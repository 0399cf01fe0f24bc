package handler

import (
	"net/http"

	"tutorhub/internal/api/v1/dto"
	"tutorhub/internal/middleware"
	"tutorhub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	enrollmentService service.EnrollmentService
	logger            zerolog.Logger
}

func NewUserHandler(enrollmentService service.EnrollmentService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		enrollmentService: enrollmentService,
		logger:            logger.With().Str("handler", "UserHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMw func(http.Handler) http.Handler) {
	r.With(authMw).Get("/users/me/enrollments", h.listEnrollments)
}

func (h *UserHandler) listEnrollments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	enrollments, err := h.enrollmentService.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := make([]dto.EnrollmentResponseDTO, 0, len(enrollments))
	for _, e := range enrollments {
		resp = append(resp, dto.EnrollmentResponseDTO{
			CourseID:   e.CourseID,
			CourseName: e.CourseName,
			Status:     e.Status,
			CreatedAt:  e.CreatedAt,
			UpdatedAt:  e.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
