package dto

// ErrorResponseDTO is the body of every non-2xx response.
type ErrorResponseDTO struct {
	Message string `json:"message"`
}
