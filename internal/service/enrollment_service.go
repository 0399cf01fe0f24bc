package service

import (
	"context"
	"encoding/json"
	"time"

	"tutorhub/internal/model"
	"tutorhub/internal/repository"

	"github.com/rs/zerolog"
)

// EventPublisher publishes a payload to a topic and returns the message id.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// EnrollmentEvent is published once per newly created enrollment.
type EnrollmentEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EnrollResult describes what Enroll did.
type EnrollResult struct {
	CourseID string
	// Enrolled is false for access probes.
	Enrolled bool
	// Created is true when the enrollment row did not exist before.
	Created bool
}

type EnrollmentService interface {
	// Authorize resolves courseKey, loads the course and runs the access gate.
	Authorize(ctx context.Context, userID, courseKey string) (*model.Course, error)
	// Enroll authorizes and, unless checkOnly is set, upserts an active enrollment.
	Enroll(ctx context.Context, userID, courseKey string, checkOnly bool) (*EnrollResult, error)
	// EnrollCourse upserts an enrollment for an already authorized course id.
	EnrollCourse(ctx context.Context, userID, courseID, source string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]model.Enrollment, error)
}

type enrollmentService struct {
	resolver       CourseResolver
	courseRepo     repository.CourseRepository
	gate           AccessGate
	enrollmentRepo repository.EnrollmentRepository
	publisher      EventPublisher
	topic          string
	logger         zerolog.Logger
}

// NewEnrollmentService creates an EnrollmentService. Events are only
// published when both publisher and topic are set.
func NewEnrollmentService(
	resolver CourseResolver,
	courseRepo repository.CourseRepository,
	gate AccessGate,
	enrollmentRepo repository.EnrollmentRepository,
	publisher EventPublisher,
	topic string,
	logger zerolog.Logger,
) EnrollmentService {
	return &enrollmentService{
		resolver:       resolver,
		courseRepo:     courseRepo,
		gate:           gate,
		enrollmentRepo: enrollmentRepo,
		publisher:      publisher,
		topic:          topic,
		logger:         logger.With().Str("service", "EnrollmentService").Logger(),
	}
}

func (s *enrollmentService) Authorize(ctx context.Context, userID, courseKey string) (*model.Course, error) {
	courseID, err := s.resolver.Resolve(ctx, courseKey)
	if err != nil {
		return nil, err
	}
	course, err := s.courseRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	decision, err := s.gate.CheckAccess(ctx, userID, course.ID)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, courseKey string, checkOnly bool) (*EnrollResult, error) {
	course, err := s.Authorize(ctx, userID, courseKey)
	if err != nil {
		return nil, err
	}
	if checkOnly {
		return &EnrollResult{CourseID: course.ID}, nil
	}

	created, err := s.EnrollCourse(ctx, userID, course.ID, "enroll")
	if err != nil {
		return nil, err
	}
	return &EnrollResult{CourseID: course.ID, Enrolled: true, Created: created}, nil
}

func (s *enrollmentService) EnrollCourse(ctx context.Context, userID, courseID, source string) (bool, error) {
	created, err := s.enrollmentRepo.UpsertEnrollment(ctx, userID, courseID, model.EnrollmentStatusActive)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("course_id", courseID).Msg("Failed to upsert enrollment")
		return false, err
	}
	if created {
		s.logger.Info().Str("user_id", userID).Str("course_id", courseID).Str("source", source).Msg("User enrolled")
		s.publishEnrollment(ctx, userID, courseID, source)
	}
	return created, nil
}

func (s *enrollmentService) ListForUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	return s.enrollmentRepo.ListEnrollmentsByUserID(ctx, userID)
}

// publishEnrollment is best-effort: the enrollment is already committed.
func (s *enrollmentService) publishEnrollment(ctx context.Context, userID, courseID, source string) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	payload, err := json.Marshal(EnrollmentEvent{
		Type:       "enrollment.created",
		UserID:     userID,
		CourseID:   courseID,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal enrollment event")
		return
	}
	msgID, err := s.publisher.Publish(ctx, s.topic, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", s.topic).Str("user_id", userID).Msg("Failed to publish enrollment event")
		return
	}
	s.logger.Debug().Str("message_id", msgID).Str("topic", s.topic).Msg("Published enrollment event")
}
