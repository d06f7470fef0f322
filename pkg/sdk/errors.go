package stardex

import "fmt"

// APIError is a non-2xx response decoded from the service error
// envelope. Status is the HTTP status code; Code is the machine-readable
// error code ("system_not_found", "invalid_query", ...).
// Use errors.As() to check.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stardex: %s (status %d, code %s)", e.Message, e.Status, e.Code)
}
