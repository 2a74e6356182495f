package domain

import (
	"strings"
	"unicode"
)

// MaxUserIDLength is the maximum byte length of a user identifier.
const MaxUserIDLength = 128

// UserID identifies the account a token resolves to.
//
// It is opaque to this package. Values reach the domain only through
// ParseUserID so a record id or lookup key cannot be passed by mistake.
type UserID string

// ParseUserID validates and converts s into a UserID.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return "", ErrInvalidUserID.WithDetails("user id is empty")
	}
	if len(s) > MaxUserIDLength {
		return "", ErrInvalidUserID.WithDetails("user id too long")
	}
	if strings.ContainsRune(s, ':') {
		return "", ErrInvalidUserID.WithDetails("user id must not contain ':'")
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return "", ErrInvalidUserID.WithDetails("user id contains whitespace or control characters")
		}
	}
	return UserID(s), nil
}

// MustParseUserID is like ParseUserID but panics on error. Tests only.
func MustParseUserID(s string) UserID {
	id, err := ParseUserID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the raw identifier.
func (u UserID) String() string {
	return string(u)
}

// IsZero reports whether the id is unset.
func (u UserID) IsZero() bool {
	return u == ""
}
