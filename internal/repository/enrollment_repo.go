package repository

import (
	"context"
	"fmt"

	"tutorhub/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type EnrollmentRepository interface {
	// UpsertEnrollment creates or re-activates the (user, course) row and
	// reports whether a new row was inserted.
	UpsertEnrollment(ctx context.Context, userID, courseID, status string) (bool, error)
	ListEnrollmentsByUserID(ctx context.Context, userID string) ([]model.Enrollment, error)
}

type enrollmentRepo struct {
	pool *pgxpool.Pool
}

func NewEnrollmentRepo(pool *pgxpool.Pool) EnrollmentRepository {
	return &enrollmentRepo{pool: pool}
}

func (r *enrollmentRepo) UpsertEnrollment(ctx context.Context, userID, courseID, status string) (bool, error) {
	const q = `
		INSERT INTO enrollments (user_id, course_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, course_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	if err := r.pool.QueryRow(ctx, q, userID, courseID, status).Scan(&inserted); err != nil {
		return false, fmt.Errorf("upserting enrollment for user %s course %s: %w", userID, courseID, err)
	}
	return inserted, nil
}

func (r *enrollmentRepo) ListEnrollmentsByUserID(ctx context.Context, userID string) ([]model.Enrollment, error) {
	const q = `
		SELECT e.user_id, e.course_id::text, c.name, e.status, e.created_at, e.updated_at
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("listing enrollments for user %s: %w", userID, err)
	}
	defer rows.Close()

	enrollments := []model.Enrollment{}
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.UserID, &e.CourseID, &e.CourseName, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enrollments: %w", err)
	}
	return enrollments, nil
}
