package service

import (
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
)

// TokenInfo is the non-secret view of a token record shown to its owner.
type TokenInfo struct {
	ID        string            `json:"id"`
	UserID    domain.UserID     `json:"user_id"`
	Version   int               `json:"version"`
	State     domain.TokenState `json:"state"`
	Label     string            `json:"label,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	RevokedAt *time.Time        `json:"revoked_at,omitempty"`
}

// IssuedToken is returned once per issuance. QRText carries the raw value.
type IssuedToken struct {
	Token  *domain.SecureToken
	QRText string
	Info   *TokenInfo
}
