package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tutorhub/internal/api/v1/dto"
	"tutorhub/internal/middleware"
	"tutorhub/internal/model"
	"tutorhub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CourseHandler handles course-related endpoints
type CourseHandler struct {
	courseService     service.CourseService
	enrollmentService service.EnrollmentService
	logger            zerolog.Logger
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(courseService service.CourseService, enrollmentService service.EnrollmentService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courseService:     courseService,
		enrollmentService: enrollmentService,
		logger:            logger.With().Str("handler", "CourseHandler").Logger(),
	}
}

// RegisterRoutes mounts course routes
func (h *CourseHandler) RegisterRoutes(r chi.Router, authMw func(http.Handler) http.Handler) {
	r.Get("/courses", h.listCourses)
	r.Get("/courses/{courseKey}", h.getCourse)
	r.With(authMw).Post("/courses/{courseKey}/enroll", h.enroll)
}

func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courseService.ListCourses(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := make([]dto.CourseResponseDTO, 0, len(courses))
	for i := range courses {
		resp = append(resp, h.toCourseDTO(r, &courses[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CourseHandler) getCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.courseService.GetCourse(r.Context(), chi.URLParam(r, "courseKey"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toCourseDTO(r, course))
}

// enroll enrolls the caller, or with checkOnly only runs the access checks
// and answers 204.
func (h *CourseHandler) enroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	checkOnly, err := parseCheckOnly(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	result, err := h.enrollmentService.Enroll(r.Context(), userID, chi.URLParam(r, "courseKey"), checkOnly)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if checkOnly {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, dto.EnrollResponseDTO{Status: "enrolled", CourseID: result.CourseID})
}

// parseCheckOnly reads the flag from the query string or, failing that, the
// optional JSON body.
func parseCheckOnly(r *http.Request) (bool, error) {
	switch r.URL.Query().Get("checkOnly") {
	case "true", "1":
		return true, nil
	}
	if r.Body == nil {
		return false, nil
	}
	var req dto.EnrollRequestDTO
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return req.CheckOnly, nil
}

func (h *CourseHandler) toCourseDTO(r *http.Request, c *model.Course) dto.CourseResponseDTO {
	return dto.CourseResponseDTO{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		Price:        c.Price,
		Currency:     c.Currency,
		ThumbnailURL: h.courseService.ThumbnailURL(r.Context(), c),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
