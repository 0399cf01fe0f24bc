// Package inmem implements the repository interfaces on top of process
// memory. It backs service and handler tests.
package inmem

import (
	"sync"
	"time"

	"tutorhub/internal/model"

	"github.com/google/uuid"
)

type enrollmentKey struct {
	userID   string
	courseID string
}

// DB holds every table. Counters record store calls so tests can assert
// which lookups happened.
type DB struct {
	mu          sync.RWMutex
	courses     []*model.Course
	cohorts     []*model.Cohort
	members     []*model.CohortMember
	users       map[string]*model.User
	enrollments map[enrollmentKey]*model.Enrollment
	deadLetters []*model.DeadLetterMessage

	CourseQueries int
	ClaimCalls    int
	FailClaims    bool
}

func New() *DB {
	return &DB{
		users:       map[string]*model.User{},
		enrollments: map[enrollmentKey]*model.Enrollment{},
	}
}

// AddCourse stores c, assigning an id and timestamps when missing.
func (db *DB) AddCourse(c model.Course) model.Course {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
		c.UpdatedAt = c.CreatedAt
	}
	db.courses = append(db.courses, &c)
	return c
}

func (db *DB) AddCohort(courseID, name string, active bool) model.Cohort {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := model.Cohort{ID: uuid.NewString(), CourseID: courseID, Name: name, IsActive: active, CreatedAt: time.Now().UTC()}
	db.cohorts = append(db.cohorts, &c)
	return c
}

// AddMember stores m as-is, defaulting id and status.
func (db *DB) AddMember(m model.CohortMember) model.CohortMember {
	db.mu.Lock()
	defer db.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = model.MemberStatusActive
	}
	db.members = append(db.members, &m)
	return m
}

func (db *DB) AddUser(u model.User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.UserID] = &u
}

// Member returns a copy of the member row, nil when missing.
func (db *DB) Member(id string) *model.CohortMember {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, m := range db.members {
		if m.ID == id {
			cp := *m
			return &cp
		}
	}
	return nil
}

// Enrollments returns every enrollment row.
func (db *DB) Enrollments() []model.Enrollment {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]model.Enrollment, 0, len(db.enrollments))
	for _, e := range db.enrollments {
		out = append(out, *e)
	}
	return out
}

func (db *DB) User(id string) *model.User {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if u, ok := db.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

// DeadLetters returns the stored dead-letter messages in insert order.
func (db *DB) DeadLetters() []model.DeadLetterMessage {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]model.DeadLetterMessage, 0, len(db.deadLetters))
	for _, m := range db.deadLetters {
		out = append(out, *m)
	}
	return out
}
