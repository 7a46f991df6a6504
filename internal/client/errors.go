package client

import "fmt"

// APIError is a non-2xx response from the events endpoint. The message
// carries the numeric status and status text so the operator sees exactly
// what the backend said.
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("events endpoint returned HTTP %d %s", e.StatusCode, e.Status)
}

// ValidationError is a response body that is neither the expected envelope
// nor the legacy bare-array form.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid events payload: " + e.Reason
}
