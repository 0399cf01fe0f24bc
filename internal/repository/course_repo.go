package repository

import (
	"context"
	"errors"
	"fmt"

	"tutorhub/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CourseRepository defines the interface for interacting with course data
type CourseRepository interface {
	ListCourses(ctx context.Context) ([]model.Course, error)
	// GetCourseByID retrieves a course by its ID, nil when missing
	GetCourseByID(ctx context.Context, courseID string) (*model.Course, error)
	// FindCourseIDBySlug returns "" when no course carries the slug
	FindCourseIDBySlug(ctx context.Context, slug string) (string, error)
	// FindCourseIDByNames matches any of names case-insensitively, "" when none match
	FindCourseIDByNames(ctx context.Context, names []string) (string, error)
}

type courseRepo struct {
	pool *pgxpool.Pool
}

// NewCourseRepo creates a new CourseRepository
func NewCourseRepo(pool *pgxpool.Pool) CourseRepository {
	return &courseRepo{pool: pool}
}

const courseColumns = `id, name, slug, description, price, currency, thumbnail_path, created_at, updated_at`

func scanCourse(row pgx.Row) (*model.Course, error) {
	var c model.Course
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.Price,
		&c.Currency,
		&c.ThumbnailPath,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) ListCourses(ctx context.Context) ([]model.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating courses: %w", err)
	}
	return courses, nil
}

func (r *courseRepo) GetCourseByID(ctx context.Context, courseID string) (*model.Course, error) {
	id, ok := canonicalUUID(courseID)
	if !ok {
		return nil, nil
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	c, err := scanCourse(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting course %s: %w", courseID, err)
	}
	return c, nil
}

func (r *courseRepo) FindCourseIDBySlug(ctx context.Context, slug string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id::text FROM courses WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("finding course by slug %q: %w", slug, err)
	}
	return id, nil
}

// FindCourseIDByNames returns the oldest course whose name matches one of
// the candidates, ignoring case.
func (r *courseRepo) FindCourseIDByNames(ctx context.Context, names []string) (string, error) {
	if len(names) == 0 {
		return "", nil
	}
	query := `
		SELECT id::text
		FROM courses
		WHERE lower(name) = ANY(SELECT lower(n) FROM unnest($1::text[]) AS n)
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	var id string
	if err := r.pool.QueryRow(ctx, query, names).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("finding course by name: %w", err)
	}
	return id, nil
}

// canonicalUUID parses s and returns its lower-case form. Keys that are not
// UUIDs cannot match a uuid column.
func canonicalUUID(s string) (string, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
