package service

import (
	"context"
	"net/http"
	"strings"

	"tutorhub/internal/repository"

	"github.com/rs/zerolog"
)

// Decision is the outcome of an access check. Status and Message are only set
// when access is denied.
type Decision struct {
	Allowed bool
	Status  int
	Message string
}

// Err converts a denial into an *AccessDeniedError, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &AccessDeniedError{Status: d.Status, Message: d.Message}
}

var allowed = Decision{Allowed: true}

// AccessGate decides whether a user may enroll in a course. Courses with at
// least one active cohort are restricted to that cohort's members.
type AccessGate interface {
	CheckAccess(ctx context.Context, userID, courseID string) (Decision, error)
}

type accessGate struct {
	cohortRepo repository.CohortRepository
	userRepo   repository.UserRepository
	logger     zerolog.Logger
}

func NewAccessGate(cohortRepo repository.CohortRepository, userRepo repository.UserRepository, logger zerolog.Logger) AccessGate {
	return &accessGate{
		cohortRepo: cohortRepo,
		userRepo:   userRepo,
		logger:     logger.With().Str("service", "AccessGate").Logger(),
	}
}

func (g *accessGate) CheckAccess(ctx context.Context, userID, courseID string) (Decision, error) {
	cohorts, err := g.cohortRepo.ListActiveCohorts(ctx, courseID)
	if err != nil {
		return Decision{}, err
	}
	if len(cohorts) == 0 {
		return allowed, nil
	}

	rawEmail, err := g.userRepo.GetUserEmail(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if rawEmail == nil {
		return Decision{Status: http.StatusUnauthorized, Message: "User not found"}, nil
	}
	email := strings.ToLower(strings.TrimSpace(*rawEmail))

	member, err := g.cohortRepo.FindActiveMember(ctx, courseID, userID, email)
	if err != nil {
		return Decision{}, err
	}
	if member == nil {
		g.logger.Info().Str("user_id", userID).Str("course_id", courseID).Msg("User is not a member of any active cohort")
		return Decision{Status: http.StatusForbidden, Message: NotInCohortMessage}, nil
	}

	if member.NeedsClaim(email) {
		// The request is already allowed; a failed claim only means the next
		// lookup falls back to the email match again.
		claimed, err := g.cohortRepo.ClaimMember(ctx, member.ID, userID, email)
		switch {
		case err != nil:
			g.logger.Error().Err(err).Str("member_id", member.ID).Str("user_id", userID).Msg("Failed to claim cohort member")
		case !claimed:
			g.logger.Warn().Str("member_id", member.ID).Str("user_id", userID).Msg("Cohort member already claimed by another account")
		default:
			g.logger.Info().Str("member_id", member.ID).Str("user_id", userID).Msg("Claimed cohort member for user")
		}
	}

	return allowed, nil
}
