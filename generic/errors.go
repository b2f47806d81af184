/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every failure carries a human-readable message AND a machine-checkable
  kind, so callers can branch with errors.Is() and the API layer can map
  kinds to HTTP status codes without string matching.

ERROR KINDS:
  invalid_input        Malformed arguments (negative days, bad basis, bad config)
  unsafe_formula       Formula rejected by the security gate or grammar
  invalid_variable     Formula variable name/value rejected, or undefined
  non_numeric_result   Formula produced NaN, Inf or divided by zero
  unauthorized         Actor lacks the capability for a transition
  invalid_state        Transition attempted from the wrong source state
  employee_not_found   Employee could not be resolved (bulk skips these)
  not_found            Client config, staff or ticket lookup miss
  not_eligible         Payroll requested for a non-active employee

USAGE:
  Wrap with Errorf at the point of failure:

    return generic.Errorf(generic.KindInvalidInput, "payroll.ComputeFactor",
        "days worked cannot be negative: %d", days)

  Check with errors.Is against the sentinels:

    if errors.Is(err, generic.ErrUnauthorized) { ... }

SEE ALSO:
  - formula/: Produces unsafe_formula / invalid_variable / non_numeric_result
  - boarding/machine.go: Produces unauthorized / invalid_state
  - api/handlers.go: Maps kinds to HTTP status
*/
package generic

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindUnsafeFormula    Kind = "unsafe_formula"
	KindInvalidVariable  Kind = "invalid_variable"
	KindNonNumericResult Kind = "non_numeric_result"
	KindUnauthorized     Kind = "unauthorized"
	KindInvalidState     Kind = "invalid_state"
	KindEmployeeNotFound Kind = "employee_not_found"
	KindNotFound         Kind = "not_found"
	KindNotEligible      Kind = "not_eligible"
	KindInternal         Kind = "internal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsafeFormula is returned when a formula fails the security gate,
	// references an unknown function, or does not parse.
	ErrUnsafeFormula = errors.New("unsafe formula")

	// ErrInvalidVariable is returned for bad variable names, non-numeric
	// values, or references to variables that were not supplied.
	ErrInvalidVariable = errors.New("invalid variable")

	// ErrNonNumericResult is returned when evaluation yields NaN or Inf.
	ErrNonNumericResult = errors.New("non-numeric result")

	// ErrUnauthorized is returned when an actor lacks a required capability.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState is returned when a transition's source state is wrong.
	ErrInvalidState = errors.New("invalid state")

	// ErrEmployeeNotFound is returned when an employee cannot be resolved.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrNotFound is returned for any other missing record.
	ErrNotFound = errors.New("not found")

	// ErrNotEligible is returned when payroll is requested for a staff record
	// that has not completed boarding.
	ErrNotEligible = errors.New("not eligible for payroll")

	// ErrInternal marks failures that are not the caller's fault.
	ErrInternal = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindInvalidInput:     ErrInvalidInput,
	KindUnsafeFormula:    ErrUnsafeFormula,
	KindInvalidVariable:  ErrInvalidVariable,
	KindNonNumericResult: ErrNonNumericResult,
	KindUnauthorized:     ErrUnauthorized,
	KindInvalidState:     ErrInvalidState,
	KindEmployeeNotFound: ErrEmployeeNotFound,
	KindNotFound:         ErrNotFound,
	KindNotEligible:      ErrNotEligible,
	KindInternal:         ErrInternal,
}

// =============================================================================
// STRUCTURED ERROR - Carries kind, operation and optional cause
// =============================================================================

// Error is the engine's structured error.
type Error struct {
	Kind    Kind
	Op      string // e.g. "formula.Evaluate"
	Message string
	Err     error // optional underlying cause
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around a cause.
func Wrap(kind Kind, op string, err error, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the kind of the first *Error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindInvalidInput, KindUnsafeFormula, KindInvalidVariable, KindNonNumericResult:
		return true
	}
	return false
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmployeeNotFound)
}
