package service

import (
	"context"
	"fmt"
	"strings"

	"tutorhub/internal/model"
	"tutorhub/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// RosterEntry is a pre-registration of an email into a cohort, produced by
// the registration process before the learner has an account.
type RosterEntry struct {
	CohortID string `json:"cohort_id" validate:"required,uuid"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=200"`
}

type RosterService interface {
	// Register adds an email-only member to the cohort. Returns false when the
	// email was already registered.
	Register(ctx context.Context, entry RosterEntry) (bool, error)
}

type rosterService struct {
	repo     repository.CohortRepository
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewRosterService(repo repository.CohortRepository, validate *validator.Validate, logger zerolog.Logger) RosterService {
	return &rosterService{
		repo:     repo,
		validate: validate,
		logger:   logger.With().Str("service", "RosterService").Logger(),
	}
}

func (s *rosterService) Register(ctx context.Context, entry RosterEntry) (bool, error) {
	entry.Email = strings.ToLower(strings.TrimSpace(entry.Email))
	entry.Name = strings.TrimSpace(entry.Name)
	if err := s.validate.Struct(&entry); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}

	cohort, err := s.repo.GetCohortByID(ctx, entry.CohortID)
	if err != nil {
		return false, err
	}
	if cohort == nil {
		return false, ErrCohortNotFound
	}

	created, err := s.repo.CreateMember(ctx, &model.CohortMember{
		CohortID: cohort.ID,
		Email:    entry.Email,
		Name:     entry.Name,
		Status:   model.MemberStatusActive,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("cohort_id", entry.CohortID).Msg("Failed to register cohort member")
		return false, err
	}
	if created {
		s.logger.Info().Str("cohort_id", entry.CohortID).Msg("Registered cohort member")
	}
	return created, nil
}
