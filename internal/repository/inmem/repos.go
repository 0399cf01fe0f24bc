package inmem

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"tutorhub/internal/model"
	"tutorhub/internal/repository"

	"github.com/google/uuid"
)

var errClaimFailed = errors.New("inmem: claim failed")

type courseRepo struct{ db *DB }

func NewCourseRepo(db *DB) repository.CourseRepository { return &courseRepo{db: db} }

func (r *courseRepo) ListCourses(ctx context.Context) ([]model.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.CourseQueries++
	out := make([]model.Course, 0, len(r.db.courses))
	for _, c := range r.db.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *courseRepo) GetCourseByID(ctx context.Context, courseID string) (*model.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.CourseQueries++
	for _, c := range r.db.courses {
		if strings.EqualFold(c.ID, courseID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *courseRepo) FindCourseIDBySlug(ctx context.Context, slug string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.CourseQueries++
	for _, c := range r.db.courses {
		if c.Slug == slug {
			return c.ID, nil
		}
	}
	return "", nil
}

func (r *courseRepo) FindCourseIDByNames(ctx context.Context, names []string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.CourseQueries++
	for _, c := range r.db.courses {
		for _, n := range names {
			if strings.EqualFold(c.Name, n) {
				return c.ID, nil
			}
		}
	}
	return "", nil
}

type cohortRepo struct{ db *DB }

func NewCohortRepo(db *DB) repository.CohortRepository { return &cohortRepo{db: db} }

func (r *cohortRepo) ListActiveCohorts(ctx context.Context, courseID string) ([]model.Cohort, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []model.Cohort
	for _, c := range r.db.cohorts {
		if c.CourseID == courseID && c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *cohortRepo) GetCohortByID(ctx context.Context, cohortID string) (*model.Cohort, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, c := range r.db.cohorts {
		if strings.EqualFold(c.ID, cohortID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *cohortRepo) activeCohortIDs(courseID string) map[string]bool {
	ids := map[string]bool{}
	for _, c := range r.db.cohorts {
		if c.CourseID == courseID && c.IsActive {
			ids[c.ID] = true
		}
	}
	return ids
}

func (r *cohortRepo) FindActiveMember(ctx context.Context, courseID, userID, email string) (*model.CohortMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	cohorts := r.activeCohortIDs(courseID)
	var byEmail *model.CohortMember
	for _, m := range r.db.members {
		if !cohorts[m.CohortID] || m.Status != model.MemberStatusActive {
			continue
		}
		if m.UserID != nil && *m.UserID == userID {
			cp := *m
			return &cp, nil
		}
		if byEmail == nil && strings.ToLower(m.Email) == email {
			byEmail = m
		}
	}
	if byEmail == nil {
		return nil, nil
	}
	cp := *byEmail
	return &cp, nil
}

func (r *cohortRepo) ClaimMember(ctx context.Context, memberID, userID, email string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.ClaimCalls++
	if r.db.FailClaims {
		return false, errClaimFailed
	}
	for _, m := range r.db.members {
		if m.ID != memberID {
			continue
		}
		if m.UserID != nil && *m.UserID != userID {
			return false, nil
		}
		uid := userID
		m.UserID = &uid
		m.Email = email
		m.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}

func (r *cohortRepo) CreateMember(ctx context.Context, m *model.CohortMember) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.members {
		if existing.CohortID == m.CohortID && strings.EqualFold(existing.Email, m.Email) {
			return false, nil
		}
	}
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	r.db.members = append(r.db.members, &cp)
	return true, nil
}

type userRepo struct{ db *DB }

func NewUserRepo(db *DB) repository.UserRepository { return &userRepo{db: db} }

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.db.User(id), nil
}

func (r *userRepo) GetUserEmail(ctx context.Context, id string) (*string, error) {
	u := r.db.User(id)
	if u == nil {
		return nil, nil
	}
	return &u.Email, nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[userID]; ok {
		u.StripeCustomerID = &customerID
	}
	return nil
}

type enrollmentRepo struct{ db *DB }

func NewEnrollmentRepo(db *DB) repository.EnrollmentRepository { return &enrollmentRepo{db: db} }

func (r *enrollmentRepo) UpsertEnrollment(ctx context.Context, userID, courseID, status string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := enrollmentKey{userID: userID, courseID: courseID}
	now := time.Now().UTC()
	if e, ok := r.db.enrollments[key]; ok {
		e.Status = status
		e.UpdatedAt = now
		return false, nil
	}
	r.db.enrollments[key] = &model.Enrollment{UserID: userID, CourseID: courseID, Status: status, CreatedAt: now, UpdatedAt: now}
	return true, nil
}

func (r *enrollmentRepo) ListEnrollmentsByUserID(ctx context.Context, userID string) ([]model.Enrollment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []model.Enrollment{}
	for key, e := range r.db.enrollments {
		if key.userID != userID {
			continue
		}
		cp := *e
		for _, c := range r.db.courses {
			if c.ID == cp.CourseID {
				cp.CourseName = c.Name
			}
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type dlqRepo struct{ db *DB }

func NewDLQRepo(db *DB) repository.DLQRepository { return &dlqRepo{db: db} }

func (r *dlqRepo) Create(ctx context.Context, message *model.DeadLetterMessage) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.deadLetters {
		if m.SubscriptionName == message.SubscriptionName && m.MessageID == message.MessageID {
			return false, nil
		}
	}
	cp := *message
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.db.deadLetters = append(r.db.deadLetters, &cp)
	return true, nil
}
