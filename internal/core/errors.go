package core

import (
	"errors"
	"fmt"
)

// Error classes. Every typed error below matches exactly one of these with
// errors.Is, in addition to whatever cause it wraps.
var (
	ErrValidation       = errors.New("validation failed")
	ErrOperationFailed  = errors.New("operation failed")
	ErrLoadFailed       = errors.New("load failed")
	ErrEnrichmentFailed = errors.New("enrichment failed")
)

// ValidationError is a local input problem. It never reaches the network.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %v", e.Err)
	}
	return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// OperationError reports a rejected remote create or delete.
type OperationError struct {
	Op   string // "create" or "delete"
	Kind Kind
	ID   string
	Err  error
}

func (e *OperationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OperationError) Unwrap() []error { return []error{ErrOperationFailed, e.Err} }

// LoadError reports a collection that could not be fetched and is presented empty.
type LoadError struct {
	Kind Kind
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrLoadFailed, e.Err} }

// EnrichmentError means the free-text guess is unusable and the user should
// enter the fields manually.
type EnrichmentError struct {
	Err error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment: %v", e.Err)
}

func (e *EnrichmentError) Unwrap() []error { return []error{ErrEnrichmentFailed, e.Err} }
