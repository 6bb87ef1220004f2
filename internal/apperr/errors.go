// Package apperr defines the error taxonomy shared by the service layer and
// the HTTP transport. Denials, conflicts, and validation failures are values,
// not panics; only programming errors (unknown enum values) abort a request.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// DenyReason classifies a permission denial so callers can distinguish
// "you can't" from "it doesn't exist" and from "wrong state".
type DenyReason string

const (
	ReasonInsufficientRole DenyReason = "insufficient_role"
	ReasonNotOwner         DenyReason = "not_owner"
	ReasonCrossTenant      DenyReason = "cross_tenant"
	ReasonUnassigned       DenyReason = "unassigned"
)

// ConflictCode classifies a state conflict.
type ConflictCode string

const (
	CodeAlreadyApproved      ConflictCode = "already_approved"
	CodeAlreadyInTargetState ConflictCode = "already_in_target_state"
	CodeInvalidTransition    ConflictCode = "invalid_transition"
	CodeHasDependents        ConflictCode = "has_dependents"
)

// ValidationError reports malformed or out-of-range input, field by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validation builds a single-field validation error.
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// PermissionError is a first-class policy denial.
type PermissionError struct {
	Reason  DenyReason
	Message string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied (%s): %s", e.Reason, e.Message)
}

// Deny builds a PermissionError with the given reason.
func Deny(reason DenyReason, msg string) *PermissionError {
	return &PermissionError{Reason: reason, Message: msg}
}

// NotFoundError reports an absent resource.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NotFound builds a NotFoundError for the named resource kind.
func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// StateConflictError reports an operation attempted from an invalid source
// state, such as approving an already-approved product.
type StateConflictError struct {
	Code    ConflictCode
	Message string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict (%s): %s", e.Code, e.Message)
}

// Conflict builds a StateConflictError with the given code.
func Conflict(code ConflictCode, msg string) *StateConflictError {
	return &StateConflictError{Code: code, Message: msg}
}

// AlreadyApproved is the conflict returned when approving a product that is
// already approved. It gets its own constructor because the approve path must
// surface it distinctly from generic validation failures.
func AlreadyApproved() *StateConflictError {
	return Conflict(CodeAlreadyApproved, "product is already approved")
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPermission reports whether err is (or wraps) a PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a StateConflictError.
func IsConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}
