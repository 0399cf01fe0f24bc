package service

import (
	"context"
	"net/url"
	"strings"

	"tutorhub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CourseResolver turns a caller-supplied course key (id, slug, legacy alias or
// course name) into a canonical course id.
type CourseResolver interface {
	Resolve(ctx context.Context, rawKey string) (string, error)
}

type courseResolver struct {
	repo    repository.CourseRepository
	aliases map[string]string
	logger  zerolog.Logger
}

// NewCourseResolver creates a resolver. aliases maps retired slugs to course
// ids; keys are matched case-insensitively.
func NewCourseResolver(repo repository.CourseRepository, aliases map[string]string, logger zerolog.Logger) CourseResolver {
	normalized := make(map[string]string, len(aliases))
	for slug, id := range aliases {
		normalized[strings.ToLower(strings.TrimSpace(slug))] = id
	}
	return &courseResolver{
		repo:    repo,
		aliases: normalized,
		logger:  logger.With().Str("service", "CourseResolver").Logger(),
	}
}

var nameSeparators = strings.NewReplacer("-", " ", "_", " ")

// Resolve returns ErrInvalidIdentifier for blank keys and ErrCourseNotFound
// when nothing matches. UUID-shaped keys are returned as-is; callers fetching
// the course validate existence.
func (r *courseResolver) Resolve(ctx context.Context, rawKey string) (string, error) {
	key := strings.TrimSpace(rawKey)
	if key == "" {
		return "", ErrInvalidIdentifier
	}
	if isUUID(key) {
		return key, nil
	}

	decoded, err := url.PathUnescape(key)
	if err != nil {
		decoded = key
	}
	decoded = strings.TrimSpace(decoded)
	lowered := strings.ToLower(decoded)

	if id, ok := r.aliases[lowered]; ok {
		r.logger.Debug().Str("course_key", key).Str("course_id", id).Msg("Resolved legacy course alias")
		return id, nil
	}

	id, err := r.repo.FindCourseIDBySlug(ctx, lowered)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id, err = r.repo.FindCourseIDByNames(ctx, nameCandidates(decoded))
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrCourseNotFound
	}
	return id, nil
}

// isUUID accepts only the canonical 8-4-4-4-12 hex form.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// normalizeCourseName maps "intro-to_python " to "intro to python".
func normalizeCourseName(s string) string {
	return strings.Join(strings.Fields(nameSeparators.Replace(s)), " ")
}

func nameCandidates(decoded string) []string {
	var out []string
	for _, c := range []string{decoded, normalizeCourseName(decoded)} {
		if c == "" {
			continue
		}
		if len(out) > 0 && out[0] == c {
			continue
		}
		out = append(out, c)
	}
	return out
}
