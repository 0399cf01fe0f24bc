package service

import (
	"context"

	"tutorhub/internal/model"
	"tutorhub/internal/repository"

	"github.com/rs/zerolog"
)

// ThumbnailSigner signs read URLs for stored thumbnails.
type ThumbnailSigner interface {
	PresignGet(ctx context.Context, storagePath string) (string, error)
}

// CourseService defines the interface for course catalog operations
type CourseService interface {
	ListCourses(ctx context.Context) ([]model.Course, error)
	// GetCourse resolves courseKey and loads the course
	GetCourse(ctx context.Context, courseKey string) (*model.Course, error)
	// ThumbnailURL returns "" when the course has no thumbnail or signing fails
	ThumbnailURL(ctx context.Context, c *model.Course) string
}

type courseService struct {
	repo     repository.CourseRepository
	resolver CourseResolver
	signer   ThumbnailSigner
	logger   zerolog.Logger
}

// NewCourseService creates a new CourseService. signer may be nil.
func NewCourseService(repo repository.CourseRepository, resolver CourseResolver, signer ThumbnailSigner, logger zerolog.Logger) CourseService {
	return &courseService{
		repo:     repo,
		resolver: resolver,
		signer:   signer,
		logger:   logger.With().Str("service", "CourseService").Logger(),
	}
}

func (s *courseService) ListCourses(ctx context.Context) ([]model.Course, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list courses")
		return nil, err
	}
	return courses, nil
}

func (s *courseService) GetCourse(ctx context.Context, courseKey string) (*model.Course, error) {
	courseID, err := s.resolver.Resolve(ctx, courseKey)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", courseID).Msg("Failed to fetch course")
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (s *courseService) ThumbnailURL(ctx context.Context, c *model.Course) string {
	if s.signer == nil || c.ThumbnailPath == nil || *c.ThumbnailPath == "" {
		return ""
	}
	u, err := s.signer.PresignGet(ctx, *c.ThumbnailPath)
	if err != nil {
		s.logger.Warn().Err(err).Str("course_id", c.ID).Msg("Failed to sign thumbnail URL")
		return ""
	}
	return u
}
