package repository

import (
	"context"
	"errors"
	"fmt"

	"tutorhub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CohortRepository reads cohorts and manages their member rows.
type CohortRepository interface {
	ListActiveCohorts(ctx context.Context, courseID string) ([]model.Cohort, error)
	GetCohortByID(ctx context.Context, cohortID string) (*model.Cohort, error)
	// FindActiveMember looks for an active member of any active cohort of the
	// course, matching either the user id or the email (case-insensitive).
	// Rows already bound to userID win over email-only rows.
	FindActiveMember(ctx context.Context, courseID, userID, email string) (*model.CohortMember, error)
	// ClaimMember binds the member row to userID unless another account already
	// owns it. Returns false when nothing was updated.
	ClaimMember(ctx context.Context, memberID, userID, email string) (bool, error)
	// CreateMember inserts an email-only registration. Returns false when the
	// email is already registered in the cohort.
	CreateMember(ctx context.Context, m *model.CohortMember) (bool, error)
}

type cohortRepo struct {
	pool *pgxpool.Pool
}

func NewCohortRepo(pool *pgxpool.Pool) CohortRepository {
	return &cohortRepo{pool: pool}
}

func (r *cohortRepo) ListActiveCohorts(ctx context.Context, courseID string) ([]model.Cohort, error) {
	query := `
		SELECT id::text, course_id::text, name, is_active, created_at
		FROM cohorts
		WHERE course_id = $1 AND is_active
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("listing active cohorts for course %s: %w", courseID, err)
	}
	defer rows.Close()

	var cohorts []model.Cohort
	for rows.Next() {
		var c model.Cohort
		if err := rows.Scan(&c.ID, &c.CourseID, &c.Name, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning cohort: %w", err)
		}
		cohorts = append(cohorts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cohorts: %w", err)
	}
	return cohorts, nil
}

func (r *cohortRepo) GetCohortByID(ctx context.Context, cohortID string) (*model.Cohort, error) {
	id, ok := canonicalUUID(cohortID)
	if !ok {
		return nil, nil
	}
	query := `SELECT id::text, course_id::text, name, is_active, created_at FROM cohorts WHERE id = $1`
	var c model.Cohort
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.CourseID, &c.Name, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting cohort %s: %w", cohortID, err)
	}
	return &c, nil
}

func (r *cohortRepo) FindActiveMember(ctx context.Context, courseID, userID, email string) (*model.CohortMember, error) {
	query := `
		SELECT m.id::text, m.cohort_id::text, m.user_id, m.email, m.name, m.status, m.created_at, m.updated_at
		FROM cohort_members m
		JOIN cohorts c ON c.id = m.cohort_id
		WHERE c.course_id = $1
		  AND c.is_active
		  AND m.status = 'active'
		  AND (m.user_id = $2 OR lower(m.email) = $3)
		ORDER BY (m.user_id IS NOT DISTINCT FROM $2) DESC, m.created_at ASC
		LIMIT 1
	`
	var m model.CohortMember
	err := r.pool.QueryRow(ctx, query, courseID, userID, email).Scan(
		&m.ID,
		&m.CohortID,
		&m.UserID,
		&m.Email,
		&m.Name,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding cohort member for course %s: %w", courseID, err)
	}
	return &m, nil
}

func (r *cohortRepo) ClaimMember(ctx context.Context, memberID, userID, email string) (bool, error) {
	query := `
		UPDATE cohort_members
		SET user_id = $2, email = $3, updated_at = NOW()
		WHERE id = $1 AND (user_id IS NULL OR user_id = $2)
	`
	tag, err := r.pool.Exec(ctx, query, memberID, userID, email)
	if err != nil {
		return false, fmt.Errorf("claiming cohort member %s: %w", memberID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *cohortRepo) CreateMember(ctx context.Context, m *model.CohortMember) (bool, error) {
	query := `
		INSERT INTO cohort_members (cohort_id, email, name, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cohort_id, (lower(email))) DO NOTHING
		RETURNING id::text, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, m.CohortID, m.Email, m.Name, m.Status).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("creating cohort member in %s: %w", m.CohortID, err)
	}
	return true, nil
}
