package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports input the caller has to correct. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// CallerError marks the error as bad input for log levelling.
func (e *ValidationError) CallerError() bool { return true }

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError signals an operation attempted from a state that does not allow it.
type InvalidStateError struct {
	Entity    string
	ID        int64
	State     string
	Operation string
	// Remedy optionally names what the caller should do instead.
	Remedy string
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("cannot %s %s %d in state %q", e.Operation, e.Entity, e.ID, e.State)
	if e.Remedy != "" {
		msg += ": " + e.Remedy
	}
	return msg
}

func (e *InvalidStateError) CallerError() bool { return true }

// ScopeDeniedError is returned when the caller's grant does not cover the
// scope (condominium) an entity belongs to.
type ScopeDeniedError struct {
	ScopeID int64
}

func (e *ScopeDeniedError) Error() string {
	return fmt.Sprintf("scope %d not granted", e.ScopeID)
}

func (e *ScopeDeniedError) CallerError() bool { return true }

// ErrAmbiguousApartment is returned when a reference names more than one apartment.
var ErrAmbiguousApartment = errors.New("reference matches more than one apartment")

// IntegrityViolation blocks a state transition. Reasons are human readable.
type IntegrityViolation struct {
	Reasons []string
}

func (e *IntegrityViolation) Error() string {
	return "integrity violation: " + strings.Join(e.Reasons, "; ")
}

// ResourceExhaustion is returned when document number generation runs out of attempts.
type ResourceExhaustion struct {
	Resource string
	Attempts int
}

func (e *ResourceExhaustion) Error() string {
	return fmt.Sprintf("%s exhausted after %d attempts", e.Resource, e.Attempts)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}

func IsScopeDenied(err error) bool {
	var target *ScopeDeniedError
	return errors.As(err, &target)
}

func IsIntegrityViolation(err error) bool {
	var target *IntegrityViolation
	return errors.As(err, &target)
}

func IsResourceExhaustion(err error) bool {
	var target *ResourceExhaustion
	return errors.As(err, &target)
}
