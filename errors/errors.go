// Package errors provides error handling for Classboard.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrJobNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Common sentinel errors for use across Classboard.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrJobNotFound indicates the requested job is not registered
	ErrJobNotFound = New("job not found")

	// ErrAlreadyRunning indicates an execution was rejected because a prior
	// run of the same job is still in flight. Not a failure condition.
	ErrAlreadyRunning = New("job already running")

	// ErrTimeout indicates a job handler exceeded its configured timeout
	ErrTimeout = New("job timed out")

	// ErrInvalidJob indicates a job definition failed validation
	ErrInvalidJob = New("invalid job definition")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// IsJobNotFound checks if an error is or wraps ErrJobNotFound
func IsJobNotFound(err error) bool {
	return err != nil && Is(err, ErrJobNotFound)
}

// IsAlreadyRunning checks if an error is or wraps ErrAlreadyRunning
func IsAlreadyRunning(err error) bool {
	return err != nil && Is(err, ErrAlreadyRunning)
}

// IsTimeout checks if an error is or wraps ErrTimeout
func IsTimeout(err error) bool {
	return err != nil && Is(err, ErrTimeout)
}

// NewJobNotFound creates a job-not-found error carrying the job id
func NewJobNotFound(jobID string) error {
	return Wrapf(ErrJobNotFound, "job %q", jobID)
}
