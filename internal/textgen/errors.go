package textgen

import "fmt"

// ServiceError represents an error from a generation backend.
type ServiceError struct {
	// Service is the name of the backend that encountered the error.
	Service string

	// StatusCode is the HTTP status returned, if any.
	StatusCode int

	// Message is a human-readable error message.
	Message string

	// Err is the underlying error (if any).
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s generation error: %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("%s generation error: %s", e.Service, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
