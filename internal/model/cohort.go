package model

import "time"

const MemberStatusActive = "active"

// Cohort is a batch of learners attached to a single course.
type Cohort struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CohortMember is a registration in a cohort. UserID stays nil until the
// registration is claimed by an account with a matching email.
type CohortMember struct {
	ID        string    `db:"id" json:"id"`
	CohortID  string    `db:"cohort_id" json:"cohort_id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NeedsClaim reports whether the row still has to be bound to an account
// or carries a stale email.
func (m *CohortMember) NeedsClaim(email string) bool {
	return m.UserID == nil || m.Email != email
}
