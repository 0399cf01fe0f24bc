package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tutorhub/internal/api/v1/dto"
	"tutorhub/internal/middleware"
	"tutorhub/internal/model"
	"tutorhub/internal/repository/inmem"
	"tutorhub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

// fakeAuth trusts the X-User-ID header so tests can pick the caller.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header missing")
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), userID)))
	})
}

func passThrough(next http.Handler) http.Handler { return next }

type noStripe struct{}

func (noStripe) NewCustomer(*stripe.CustomerParams) (*stripe.Customer, error) {
	return nil, errors.New("stripe not available in tests")
}

func (noStripe) NewCheckoutSession(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return nil, errors.New("stripe not available in tests")
}

func newTestRouter(db *inmem.DB) http.Handler {
	logger := zerolog.Nop()
	courseRepo := inmem.NewCourseRepo(db)
	cohortRepo := inmem.NewCohortRepo(db)
	userRepo := inmem.NewUserRepo(db)

	resolver := service.NewCourseResolver(courseRepo, map[string]string{}, logger)
	gate := service.NewAccessGate(cohortRepo, userRepo, logger)
	enrollments := service.NewEnrollmentService(resolver, courseRepo, gate, inmem.NewEnrollmentRepo(db), nil, "", logger)
	courses := service.NewCourseService(courseRepo, resolver, nil, logger)
	roster := service.NewRosterService(cohortRepo, validator.New(validator.WithRequiredStructEnabled()), logger)
	checkout := service.NewCheckoutService(noStripe{}, enrollments, userRepo, "whsec_test", "https://tutorhub.test/courses", logger)

	r := chi.NewRouter()
	NewCourseHandler(courses, enrollments, logger).RegisterRoutes(r, fakeAuth)
	NewUserHandler(enrollments, logger).RegisterRoutes(r, fakeAuth)
	NewCohortHandler(roster, service.NewDLQService(inmem.NewDLQRepo(db), logger), logger).RegisterRoutes(r, passThrough)
	NewCheckoutHandler(checkout, logger).RegisterRoutes(r, fakeAuth)
	return r
}

func do(t *testing.T, h http.Handler, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.ErrorResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestGetCourse(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Intro To Python", Slug: "intro-to-python", Price: 0})
	h := newTestRouter(db)

	for _, key := range []string{course.ID, "intro-to-python", "Intro%20To%20Python"} {
		rec := do(t, h, http.MethodGet, "/courses/"+key, "", "")
		require.Equal(t, http.StatusOK, rec.Code, key)
		var got dto.CourseResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, course.ID, got.ID)
		assert.Empty(t, got.ThumbnailURL)
	}

	rec := do(t, h, http.MethodGet, "/courses/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Course not found", decodeMessage(t, rec))
}

func TestListCourses(t *testing.T) {
	db := inmem.New()
	db.AddCourse(model.Course{Name: "B Course", Slug: "b"})
	db.AddCourse(model.Course{Name: "A Course", Slug: "a"})

	rec := do(t, newTestRouter(db), http.MethodGet, "/courses", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []dto.CourseResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
}

func TestEnroll(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Intro To Python", Slug: "intro-to-python"})
	h := newTestRouter(db)

	rec := do(t, h, http.MethodPost, "/courses/intro-to-python/enroll", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"status":"enrolled","courseId":%q}`, course.ID), rec.Body.String())

	rec = do(t, h, http.MethodPost, "/courses/"+course.ID+"/enroll", "user-1", "{}")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, db.Enrollments(), 1)

	rec = do(t, h, http.MethodGet, "/users/me/enrollments", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dto.EnrollmentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Intro To Python", list[0].CourseName)
	assert.Equal(t, model.EnrollmentStatusActive, list[0].Status)
}

func TestEnrollCheckOnly(t *testing.T) {
	db := inmem.New()
	db.AddCourse(model.Course{Name: "Intro To Python", Slug: "intro-to-python"})
	h := newTestRouter(db)

	rec := do(t, h, http.MethodPost, "/courses/intro-to-python/enroll?checkOnly=true", "user-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodPost, "/courses/intro-to-python/enroll", "user-1", `{"checkOnly":true}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Empty(t, db.Enrollments())
}

func TestUpperCaseCourseID(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Intro To Python", Slug: "intro-to-python"})
	h := newTestRouter(db)
	upper := strings.ToUpper(course.ID)

	rec := do(t, h, http.MethodGet, "/courses/"+upper, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.CourseResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, course.ID, got.ID)

	rec = do(t, h, http.MethodPost, "/courses/"+upper+"/enroll", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"status":"enrolled","courseId":%q}`, course.ID), rec.Body.String())

	enrollments := db.Enrollments()
	require.Len(t, enrollments, 1)
	assert.Equal(t, course.ID, enrollments[0].CourseID)
}

func TestEnrollErrors(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Bootcamp", Slug: "bootcamp"})
	db.AddCohort(course.ID, "Spring", true)
	db.AddUser(model.User{UserID: "user-1", Email: "learner@example.com"})
	h := newTestRouter(db)

	rec := do(t, h, http.MethodPost, "/courses/bootcamp/enroll", "user-1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, service.NotInCohortMessage, decodeMessage(t, rec))

	rec = do(t, h, http.MethodPost, "/courses/bootcamp/enroll?checkOnly=true", "user-1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, service.NotInCohortMessage, decodeMessage(t, rec))

	rec = do(t, h, http.MethodPost, "/courses/bootcamp/enroll", "ghost", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/courses/bootcamp/enroll", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/courses/nothing-here/enroll", "user-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/courses/bootcamp/enroll", "user-1", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, db.Enrollments())
}

func pushBody(t *testing.T, entry string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"message": map[string]any{
			"data":      base64.StdEncoding.EncodeToString([]byte(entry)),
			"messageId": "m-1",
		},
		"subscription": "projects/p/subscriptions/registrations",
	})
	require.NoError(t, err)
	return string(b)
}

func TestRegistrationThenEnroll(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Bootcamp", Slug: "bootcamp"})
	cohort := db.AddCohort(course.ID, "Spring", true)
	db.AddUser(model.User{UserID: "user-1", Email: "Learner@Example.com"})
	h := newTestRouter(db)

	entry := fmt.Sprintf(`{"cohort_id":%q,"email":"learner@example.com","name":"Lee"}`, cohort.ID)
	rec := do(t, h, http.MethodPost, "/cohorts/registrations", "", pushBody(t, entry))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// A redelivery is a no-op.
	rec = do(t, h, http.MethodPost, "/cohorts/registrations", "", pushBody(t, entry))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodPost, "/courses/bootcamp/enroll", "user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegistrationRejectsBadPayloads(t *testing.T) {
	db := inmem.New()
	h := newTestRouter(db)

	rec := do(t, h, http.MethodPost, "/cohorts/registrations", "", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/cohorts/registrations", "", pushBody(t, `{"cohort_id":"nope","email":"x"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/cohorts/registrations", "", pushBody(t, `{"cohort_id":"0b8f6a3e-2c1d-4e5f-8a9b-1c2d3e4f5a6b","email":"a@b.com"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeadLetterPushIsStoredOnce(t *testing.T) {
	db := inmem.New()
	h := newTestRouter(db)
	body := pushBody(t, `{"cohort_id":"gone","email":"a@b.com"}`)

	rec := do(t, h, http.MethodPost, "/cohorts/registrations/dlq", "", body)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodPost, "/cohorts/registrations/dlq", "", body)
	require.Equal(t, http.StatusNoContent, rec.Code)

	stored := db.DeadLetters()
	require.Len(t, stored, 1)
	assert.Equal(t, "m-1", stored[0].MessageID)
	assert.Equal(t, `{"cohort_id":"gone","email":"a@b.com"}`, stored[0].Payload)
	assert.Equal(t, model.DeadLetterStatusUnprocessed, stored[0].Status)
}

func TestCheckoutFreeCourseEnrolls(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Intro To Python", Slug: "intro-to-python"})
	h := newTestRouter(db)

	rec := do(t, h, http.MethodPost, "/courses/intro-to-python/checkout", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"status":"enrolled","courseId":%q}`, course.ID), rec.Body.String())
	assert.Len(t, db.Enrollments(), 1)
}

func TestStripeWebhookRejectsUnsigned(t *testing.T) {
	rec := do(t, newTestRouter(inmem.New()), http.MethodPost, "/stripe/webhook", "", `{"type":"checkout.session.completed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{service.ErrInvalidIdentifier, http.StatusBadRequest, "Invalid course identifier"},
		{fmt.Errorf("wrapped: %w", service.ErrCourseNotFound), http.StatusNotFound, "Course not found"},
		{&service.AccessDeniedError{Status: http.StatusUnauthorized, Message: "User not found"}, http.StatusUnauthorized, "User not found"},
		{service.ErrForbidden, http.StatusForbidden, "Forbidden"},
		{errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, zerolog.Nop(), tt.err)
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, tt.message, decodeMessage(t, rec))
	}
}
