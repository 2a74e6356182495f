package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("QT-TEST-1000", "test message"),
			expected: "[QT-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("QT-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[QT-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("QT-TEST-1000", "message 1")
	err2 := NewDomainError("QT-TEST-1000", "message 2")
	err3 := NewDomainError("QT-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_WrappedCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := ErrStorageError.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !errors.Is(fmt.Errorf("insert: %w", err), ErrStorageError) {
		t.Error("wrapped error should still match ErrStorageError")
	}
	if GetErrorCode(fmt.Errorf("ctx: %w", err)) != "QT-SYS-5001" {
		t.Errorf("GetErrorCode() = %q", GetErrorCode(err))
	}
	if GetErrorCode(cause) != "" {
		t.Error("GetErrorCode() should be empty for plain errors")
	}
}

func TestIsInfrastructure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrStorageError.WithCause(errors.New("x")), true},
		{ErrEntropyUnavailable, true},
		{ErrInternalServer, true},
		{ErrTokenExpired, false},
		{ErrInvalidUserID, false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsInfrastructure(tt.err); got != tt.want {
			t.Errorf("IsInfrastructure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorKind_Err(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want *DomainError
	}{
		{ErrorInvalidFormat, ErrTokenInvalidFormat},
		{ErrorMalformedData, ErrTokenMalformed},
		{ErrorUnsupportedVersion, ErrTokenUnsupportedVersion},
		{ErrorInvalidChecksum, ErrTokenInvalid},
		{ErrorExpiredToken, ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Err(); !errors.Is(got, tt.want) {
				t.Errorf("Err() = %v, want %v", got, tt.want)
			}
		})
	}

	if ErrorNone.Err() != nil {
		t.Error("ErrorNone.Err() should be nil")
	}
}
