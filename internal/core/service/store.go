package service

import (
	"context"
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
)

// TokenStore persists token records indexed by lookup key.
//
// Implementations must make Insert and MarkRevoked atomic per record and
// make a revocation visible to every later FindByHash.
type TokenStore interface {
	// Insert stores a new record. A duplicate lookup key fails with
	// domain.ErrTokenHashConflict.
	Insert(ctx context.Context, meta *domain.TokenMetadata) error

	// FindByHash returns the record for a lookup key, or nil, nil.
	FindByHash(ctx context.Context, lookupKey string) (*domain.TokenMetadata, error)

	// MarkRevoked flips the record to revoked. It returns true only when a
	// record existed and was not already revoked.
	MarkRevoked(ctx context.Context, lookupKey string, at time.Time) (bool, error)

	// ListByUser returns a user's records ordered by CreatedAt ascending.
	ListByUser(ctx context.Context, userID domain.UserID, opts ListOptions) ([]*domain.TokenMetadata, error)

	// DeleteExpiredOrRevoked removes every record prunable at now.
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int, error)
}

// ListOptions filters ListByUser.
type ListOptions struct {
	// IncludeInactive returns revoked and expired records too.
	IncludeInactive bool
	// Now is the instant expiry is judged at. Zero skips the expiry filter.
	Now time.Time
}

// Keep reports whether meta passes the filter. Store adapters share it.
func (o ListOptions) Keep(meta *domain.TokenMetadata) bool {
	if o.IncludeInactive {
		return true
	}
	if meta.Revoked {
		return false
	}
	return o.Now.IsZero() || !meta.IsExpired(o.Now)
}
