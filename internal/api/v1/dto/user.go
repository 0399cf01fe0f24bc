package dto

import "time"

type EnrollmentResponseDTO struct {
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
