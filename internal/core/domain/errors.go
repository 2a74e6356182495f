// Package domain defines the core domain models for qrtoken.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes follow QT-<AREA>-<NNNN>; the trailing four digits carry the HTTP
// class the server maps them to.
type DomainError struct {
	Code    string // Error code (e.g., "QT-TOKN-4010")
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

// Is matches by code so wrapped copies compare equal to the sentinel.
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

// IsInfrastructure reports whether err is a storage, entropy or internal
// failure rather than a verdict about caller input.
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrStorageError) ||
		errors.Is(err, ErrEntropyUnavailable) ||
		errors.Is(err, ErrInternalServer)
}

// ============================================================================
// Token Errors (TOKN)
// ============================================================================

var (
	// ErrTokenInvalidFormat indicates the QR text is not version:value:checksum.
	ErrTokenInvalidFormat = NewDomainError("QT-TOKN-4000", "invalid token format")

	// ErrTokenMalformed indicates a structurally valid token with bad field contents.
	ErrTokenMalformed = NewDomainError("QT-TOKN-4001", "malformed token data")

	// ErrTokenUnsupportedVersion indicates the wire version is not accepted.
	ErrTokenUnsupportedVersion = NewDomainError("QT-TOKN-4002", "unsupported token version")

	// ErrTokenInvalid indicates the checksum does not match: the text was
	// never produced by this service or was damaged in transit.
	ErrTokenInvalid = NewDomainError("QT-TOKN-4010", "invalid token")

	// ErrTokenExpired covers expired, revoked and unknown tokens alike.
	ErrTokenExpired = NewDomainError("QT-TOKN-4011", "token expired")

	// ErrTokenNotFound indicates a record id does not belong to the user.
	ErrTokenNotFound = NewDomainError("QT-TOKN-4040", "token not found")

	// ErrTokenHashConflict indicates a lookup key already exists in the store.
	ErrTokenHashConflict = NewDomainError("QT-TOKN-4090", "token hash conflict")
)

// ============================================================================
// User Errors (USER)
// ============================================================================

var (
	// ErrInvalidUserID indicates the user identifier failed validation.
	ErrInvalidUserID = NewDomainError("QT-USER-4001", "invalid user id")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("QT-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("QT-SYS-5001", "storage error")

	// ErrEntropyUnavailable indicates the CSPRNG could not be read.
	ErrEntropyUnavailable = NewDomainError("QT-SYS-5002", "entropy source unavailable")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("QT-SYS-5030", "service unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("QT-SYS-4000", "bad request")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("QT-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("QT-ARG-1002", "missing required argument")
)
