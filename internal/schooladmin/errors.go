package schooladmin

import (
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the admin API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("school admin api: status %d", e.Status)
	}
	return fmt.Sprintf("school admin api: status %d: %s", e.Status, e.Message)
}

// FieldError is one invalid form field, named by its JSON key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any request is sent when a form is invalid.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "invalid form: " + strings.Join(parts, "; ")
}
