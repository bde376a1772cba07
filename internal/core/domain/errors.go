// Package domain defines the core domain models for ClubMesh.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "CM-TOKN-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Token Errors (TOKN)
// ============================================================================

var (
	// ErrTokenNotFound indicates the requested token was not found.
	ErrTokenNotFound = NewDomainError("CM-TOKN-4040", "token not found")

	// ErrTokenExpired indicates the token has expired.
	ErrTokenExpired = NewDomainError("CM-TOKN-4041", "token expired")

	// ErrTokenCollision indicates a generated token ID already exists.
	ErrTokenCollision = NewDomainError("CM-TOKN-4090", "token id collision")

	// ErrTokenMalformed indicates the token format is invalid.
	ErrTokenMalformed = NewDomainError("CM-TOKN-4000", "malformed token")
)

// ============================================================================
// Relationship Errors (REL)
// ============================================================================

var (
	// ErrRelationshipNotFound indicates no relationship exists for the pair.
	ErrRelationshipNotFound = NewDomainError("CM-REL-4040", "relationship not found")

	// ErrRelationshipExists indicates an active relationship already
	// exists for the ordered pair.
	ErrRelationshipExists = NewDomainError("CM-REL-4090", "relationship already exists")

	// ErrSelfFollow indicates a principal attempted to follow itself.
	ErrSelfFollow = NewDomainError("CM-REL-4001", "cannot follow self")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("CM-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("CM-ARG-1002", "missing required argument")

	// ErrInvalidPrincipal indicates a principal identifier failed validation.
	ErrInvalidPrincipal = NewDomainError("CM-ARG-1003", "invalid principal id")

	// ErrInvalidResource indicates a resource identifier failed validation.
	ErrInvalidResource = NewDomainError("CM-ARG-1004", "invalid clubhouse id")

	// ErrInvalidTTL indicates a non-positive token lifetime.
	ErrInvalidTTL = NewDomainError("CM-ARG-1005", "ttl must be positive")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an internal error.
	ErrInternal = NewDomainError("CM-SYS-5000", "internal error")

	// ErrStorage indicates a storage layer error.
	ErrStorage = NewDomainError("CM-SYS-5001", "storage error")

	// ErrRateLimited indicates too many token issuance requests.
	ErrRateLimited = NewDomainError("CM-SYS-4290", "too many requests")

	// ErrArchiveInvalid indicates an export archive failed validation.
	ErrArchiveInvalid = NewDomainError("CM-SYS-4000", "invalid archive")
)
