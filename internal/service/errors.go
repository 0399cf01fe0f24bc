package service

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidIdentifier = errors.New("invalid course identifier")
	ErrCourseNotFound    = errors.New("course not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrCohortNotFound    = errors.New("cohort not found")
	ErrInvalidRoster     = errors.New("invalid roster entry")
	ErrInvalidWebhook    = errors.New("invalid webhook payload")
)

// NotInCohortMessage is shown to users gated out of a cohort course.
const NotInCohortMessage = "You are not in the cohort batch, please register first."

// AccessDeniedError carries the status and message the access gate decided on.
type AccessDeniedError struct {
	Status  int
	Message string
}

func (e *AccessDeniedError) Error() string {
	return e.Message
}

func (e *AccessDeniedError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return ErrForbidden
}
