package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFetchFailed       = errors.New("fetch failed")
	ErrUnsupportedRule   = errors.New("unsupported extraction rule")
	ErrNotRecognized     = errors.New("date not recognized")
	ErrStoreWriteFailed  = errors.New("store write failed")
	ErrValidationFailed  = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrMisconfigured     = errors.New("misconfigured")
	ErrSourceUnavailable = errors.New("source not in group")
)

// FetchError describes a listing or article page that could not be retrieved.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
}

// Unwrap lets errors.Is match both ErrFetchFailed and the transport cause.
func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFetchFailed, e.Err}
	}
	return []error{ErrFetchFailed}
}

// ValidationError wraps per-field messages produced by a boundary validation step.
type ValidationError struct {
	Fields error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrValidationFailed, e.Fields)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
