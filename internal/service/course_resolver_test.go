package service

import (
	"context"
	"testing"

	"tutorhub/internal/model"
	"tutorhub/internal/repository/inmem"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyCourseID = "6f1c2f4e-7a2b-4c1d-9e3f-0a1b2c3d4e5f"

func newTestResolver(db *inmem.DB) CourseResolver {
	aliases := map[string]string{"ai-in-web-development": legacyCourseID}
	return NewCourseResolver(inmem.NewCourseRepo(db), aliases, zerolog.Nop())
}

func TestResolveUUIDSkipsStore(t *testing.T) {
	db := inmem.New()
	r := newTestResolver(db)

	for _, key := range []string{
		"0b8f6a3e-2c1d-4e5f-8a9b-1c2d3e4f5a6b",
		"0B8F6A3E-2C1D-4E5F-8A9B-1C2D3E4F5A6B",
	} {
		id, err := r.Resolve(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, key, id)
	}
	assert.Zero(t, db.CourseQueries)
}

func TestResolveBlankKeyIsInvalid(t *testing.T) {
	db := inmem.New()
	r := newTestResolver(db)

	for _, key := range []string{"", "   ", "\t\n"} {
		_, err := r.Resolve(context.Background(), key)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	}
	assert.Zero(t, db.CourseQueries)
}

func TestResolveLegacyAlias(t *testing.T) {
	db := inmem.New()
	r := newTestResolver(db)

	for _, key := range []string{
		"ai-in-web-development",
		"AI-In-Web-Development",
		"ai%2Din%2Dweb%2Ddevelopment",
		" AI%2DIN-web-development ",
	} {
		id, err := r.Resolve(context.Background(), key)
		require.NoError(t, err, key)
		assert.Equal(t, legacyCourseID, id, key)
	}
	assert.Zero(t, db.CourseQueries)
}

func TestResolveByName(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Intro To Python", Slug: "python-101"})
	r := newTestResolver(db)

	for _, key := range []string{
		"intro-to-python",
		"Intro To Python",
		"intro to python",
		"Intro%20To%20Python",
		"intro__to--python",
	} {
		id, err := r.Resolve(context.Background(), key)
		require.NoError(t, err, key)
		assert.Equal(t, course.ID, id, key)
	}
}

func TestResolveBySlug(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Machine Learning Foundations", Slug: "ml-foundations"})
	r := newTestResolver(db)

	id, err := r.Resolve(context.Background(), "ML-Foundations")
	require.NoError(t, err)
	assert.Equal(t, course.ID, id)
}

func TestResolveMalformedEscapeFallsBackToRawKey(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "100% Go", Slug: "go-100"})
	r := newTestResolver(db)

	id, err := r.Resolve(context.Background(), "100% Go")
	require.NoError(t, err)
	assert.Equal(t, course.ID, id)
}

func TestResolveUnknownCourse(t *testing.T) {
	db := inmem.New()
	db.AddCourse(model.Course{Name: "Intro To Python", Slug: "intro-to-python"})
	r := newTestResolver(db)

	_, err := r.Resolve(context.Background(), "advanced-rust")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestNameCandidates(t *testing.T) {
	assert.Equal(t, []string{"intro-to-python", "intro to python"}, nameCandidates("intro-to-python"))
	assert.Equal(t, []string{"Intro To Python"}, nameCandidates("Intro To Python"))
	assert.Empty(t, nameCandidates(""))
	assert.Equal(t, []string{"--"}, nameCandidates("--"))
}
