package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Identifier formats.
const (
	// TokenIDPrefix is the prefix for public token record ids (non-sensitive, uses dash).
	TokenIDPrefix = "qrtk-"

	// LookupKeyPrefix is the prefix for keyed token fingerprints (sensitive, uses underscore).
	LookupKeyPrefix = "qrlk_"

	// LookupKeyLength is prefix + hex HMAC-SHA256.
	LookupKeyLength = 5 + 64
)

// SecureToken is a token value together with its wire metadata.
//
// Value is the raw secret. It leaves the service once, inside the QR text
// returned at issuance, and is never persisted or logged.
type SecureToken struct {
	Value     string
	Version   int
	Checksum  string
	CreatedAt time.Time
}

// HashedToken is the one-way, salted representation stored at rest.
type HashedToken struct {
	Hash      string `json:"hash"`
	Salt      string `json:"salt"`
	Algorithm string `json:"algorithm"`
}

// TokenState is the lifecycle position of a token record.
//
//	ISSUED -> ACTIVE -> EXPIRED | REVOKED -> PRUNABLE
//
// ISSUED exists only between generation and the store insert; EXPIRED and
// REVOKED records are both prunable.
type TokenState string

const (
	TokenStateIssued  TokenState = "issued"
	TokenStateActive  TokenState = "active"
	TokenStateExpired TokenState = "expired"
	TokenStateRevoked TokenState = "revoked"
)

// TokenMetadata is the persisted record for one issued token.
type TokenMetadata struct {
	ID          string      `json:"id" db:"id"`
	LookupKey   string      `json:"lookup_key" db:"lookup_key"`
	Hashed      HashedToken `json:"hashed"`
	UserID      UserID      `json:"user_id" db:"user_id"`
	Version     int         `json:"version" db:"version"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty" db:"expires_at"`
	Revoked     bool        `json:"revoked" db:"revoked"`
	RevokedAt   *time.Time  `json:"revoked_at,omitempty" db:"revoked_at"`
	SealedLabel []byte      `json:"sealed_label,omitempty" db:"sealed_label"`
}

// NewTokenID generates a public record id.
// Format: qrtk-{ulid_lowercase}, 31 characters total.
func NewTokenID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", ErrEntropyUnavailable.WithCause(err)
	}
	return TokenIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidTokenID checks the qrtk- prefix and the ULID body.
func IsValidTokenID(id string) bool {
	if len(id) != len(TokenIDPrefix)+ulid.EncodedSize || !strings.HasPrefix(id, TokenIDPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id[len(TokenIDPrefix):]))
	return err == nil
}

// IsExpired reports whether now is past the record's expiry. A token is
// still usable at the ExpiresAt instant itself.
func (m *TokenMetadata) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// IsActive reports whether the record still resolves.
func (m *TokenMetadata) IsActive(now time.Time) bool {
	return !m.Revoked && !m.IsExpired(now)
}

// IsPrunable reports whether retention may delete the record.
func (m *TokenMetadata) IsPrunable(now time.Time) bool {
	return m.Revoked || m.IsExpired(now)
}

// State returns the lifecycle state at now. Revocation wins over expiry.
func (m *TokenMetadata) State(now time.Time) TokenState {
	switch {
	case m.Revoked:
		return TokenStateRevoked
	case m.IsExpired(now):
		return TokenStateExpired
	default:
		return TokenStateActive
	}
}

// Revoke flips the record to revoked. It returns false if it already was.
func (m *TokenMetadata) Revoke(at time.Time) bool {
	if m.Revoked {
		return false
	}
	m.Revoked = true
	t := at.UTC()
	m.RevokedAt = &t
	return true
}

// Validate checks the fields every store relies on.
func (m *TokenMetadata) Validate() error {
	if !IsValidTokenID(m.ID) {
		return ErrInvalidArgument.WithDetails("invalid token record id")
	}
	if len(m.LookupKey) != LookupKeyLength || !strings.HasPrefix(m.LookupKey, LookupKeyPrefix) {
		return ErrInvalidArgument.WithDetails("invalid lookup key")
	}
	if m.UserID.IsZero() {
		return ErrInvalidUserID.WithDetails("user id is empty")
	}
	if m.Hashed.Hash == "" || m.Hashed.Salt == "" || m.Hashed.Algorithm == "" {
		return ErrInvalidArgument.WithDetails("hashed token incomplete")
	}
	if m.CreatedAt.IsZero() {
		return ErrInvalidArgument.WithDetails("created_at is required")
	}
	return nil
}

// Clone returns a deep copy.
func (m *TokenMetadata) Clone() *TokenMetadata {
	c := *m
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		c.ExpiresAt = &t
	}
	if m.RevokedAt != nil {
		t := *m.RevokedAt
		c.RevokedAt = &t
	}
	if m.SealedLabel != nil {
		c.SealedLabel = append([]byte(nil), m.SealedLabel...)
	}
	return &c
}

// MaskLookupKey shortens a lookup key for log output.
func MaskLookupKey(key string) string {
	if len(key) <= len(LookupKeyPrefix)+8 {
		return LookupKeyPrefix + "***"
	}
	body := key[len(LookupKeyPrefix):]
	return LookupKeyPrefix + body[:4] + "..." + body[len(body)-4:]
}
