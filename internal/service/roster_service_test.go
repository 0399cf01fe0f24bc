package service

import (
	"context"
	"testing"

	"tutorhub/internal/model"
	"tutorhub/internal/repository/inmem"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterRegisterNormalizesAndDeduplicates(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Bootcamp", Slug: "bootcamp"})
	cohort := db.AddCohort(course.ID, "Spring", true)
	svc := NewRosterService(inmem.NewCohortRepo(db), validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	created, err := svc.Register(context.Background(), RosterEntry{CohortID: cohort.ID, Email: " Learner@Example.com ", Name: "Lee"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Register(context.Background(), RosterEntry{CohortID: cohort.ID, Email: "learner@example.com"})
	require.NoError(t, err)
	assert.False(t, created)

	// The registration now opens the gated course to the matching account.
	db.AddUser(model.User{UserID: "user-1", Email: "LEARNER@example.com"})
	d, err := newTestGate(db).CheckAccess(context.Background(), "user-1", course.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRosterRegisterMatchesStoredEmailCaseInsensitively(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Bootcamp", Slug: "bootcamp"})
	cohort := db.AddCohort(course.ID, "Spring", true)
	db.AddMember(model.CohortMember{CohortID: cohort.ID, Email: "A@B.com"})
	svc := NewRosterService(inmem.NewCohortRepo(db), validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	created, err := svc.Register(context.Background(), RosterEntry{CohortID: cohort.ID, Email: "a@b.com"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRosterRegisterRejectsBadEntries(t *testing.T) {
	db := inmem.New()
	svc := NewRosterService(inmem.NewCohortRepo(db), validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	_, err := svc.Register(context.Background(), RosterEntry{CohortID: "not-a-uuid", Email: "a@b.com"})
	assert.ErrorIs(t, err, ErrInvalidRoster)

	_, err = svc.Register(context.Background(), RosterEntry{CohortID: "0b8f6a3e-2c1d-4e5f-8a9b-1c2d3e4f5a6b", Email: "nope"})
	assert.ErrorIs(t, err, ErrInvalidRoster)

	_, err = svc.Register(context.Background(), RosterEntry{CohortID: "0b8f6a3e-2c1d-4e5f-8a9b-1c2d3e4f5a6b", Email: "a@b.com"})
	assert.ErrorIs(t, err, ErrCohortNotFound)
}
