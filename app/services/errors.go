package services

import "strings"

// ValidationError reports bad caller input, with the specific missing
// fields so clients can point at the form field.
type ValidationError struct {
	Message string
	Missing []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Missing, ", ")
}

// NotFoundError means a lookup referenced a record this system never saw.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found: " + e.ID
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "storage error: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
