package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured
	ErrMissingAPIKey = errors.New("gemini API key is not configured")

	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = errors.New("model returned no content")

	// ErrBlocked is returned when the prompt or the answer was blocked by safety filters
	ErrBlocked = errors.New("response blocked by safety filters")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string // e.g. INVALID_ARGUMENT, RESOURCE_EXHAUSTED
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API error %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
