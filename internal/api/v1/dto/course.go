package dto

import "time"

// CourseResponseDTO is returned in API responses for courses
type CourseResponseDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Price        int64     `json:"price"`
	Currency     string    `json:"currency"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EnrollRequestDTO is the optional body of an enroll request.
type EnrollRequestDTO struct {
	CheckOnly bool `json:"checkOnly"`
}

type EnrollResponseDTO struct {
	Status   string `json:"status"`
	CourseID string `json:"courseId"`
}

// CheckoutResponseDTO carries a Stripe Checkout URL for paid courses, or the
// enrollment status when the course was free.
type CheckoutResponseDTO struct {
	URL      string `json:"url,omitempty"`
	Status   string `json:"status,omitempty"`
	CourseID string `json:"courseId"`
}
