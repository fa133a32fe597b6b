package models

import (
	"errors"
	"fmt"
)

// Compilation failures. All of them abort the whole compilation.
var (
	ErrUnresolvedStopReference   = errors.New("unresolved stop reference")
	ErrMissingCalendarAssignment = errors.New("missing calendar assignment")
	ErrMissingOperatingPeriod    = errors.New("missing operating period")
	ErrMalformedField            = errors.New("malformed field")
	ErrUnresolvedLineReference   = errors.New("unresolved line reference")
)

// CompileError carries the failure kind together with the offending identifier
type CompileError struct {
	Kind    error
	Dataset string
	Ref     string
}

func (e *CompileError) Error() string {
	if e.Dataset != "" {
		return fmt.Sprintf("%v: %q (dataset %s)", e.Kind, e.Ref, e.Dataset)
	}
	return fmt.Sprintf("%v: %q", e.Kind, e.Ref)
}

func (e *CompileError) Unwrap() error {
	return e.Kind
}

// NewCompileError builds a CompileError for ref
func NewCompileError(kind error, dataset, ref string) *CompileError {
	return &CompileError{Kind: kind, Dataset: dataset, Ref: ref}
}
