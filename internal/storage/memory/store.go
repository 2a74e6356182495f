package memory

import (
	"context"
	"slices"
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/pkg/cmap"
)

// Store is an in-memory service.TokenStore.
type Store struct {
	records   *cmap.Map[string, *domain.TokenMetadata]
	userIndex *UserIndex
}

// Option configures the Store.
type Option func(*Store)

// WithShards sets the record map shard count (a power of two).
func WithShards(n int) Option {
	return func(s *Store) {
		s.records = cmap.NewWithShards[string, *domain.TokenMetadata](n)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records:   cmap.New[string, *domain.TokenMetadata](),
		userIndex: NewUserIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ service.TokenStore = (*Store)(nil)

// Insert stores a copy of meta.
func (s *Store) Insert(ctx context.Context, meta *domain.TokenMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	if !s.records.SetIfAbsent(meta.LookupKey, meta.Clone()) {
		return domain.ErrTokenHashConflict
	}
	s.userIndex.Add(meta.UserID, meta.LookupKey)
	return nil
}

// FindByHash returns a copy of the record, or nil, nil.
func (s *Store) FindByHash(ctx context.Context, lookupKey string) (*domain.TokenMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, ok := s.records.Get(lookupKey)
	if !ok {
		return nil, nil
	}
	return meta.Clone(), nil
}

// MarkRevoked swaps in a revoked copy of the record.
func (s *Store) MarkRevoked(ctx context.Context, lookupKey string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	changed := false
	s.records.Compute(lookupKey, func(old *domain.TokenMetadata, exists bool) (*domain.TokenMetadata, bool) {
		if !exists {
			return nil, false
		}
		if old.Revoked {
			return old, true
		}
		next := old.Clone()
		changed = next.Revoke(at)
		return next, true
	})
	return changed, nil
}

// ListByUser returns copies of the user's records, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID domain.UserID, opts service.ListOptions) ([]*domain.TokenMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := s.userIndex.Get(userID)
	out := make([]*domain.TokenMetadata, 0, len(keys))
	for _, k := range keys {
		meta, ok := s.records.Get(k)
		if !ok || !opts.Keep(meta) {
			continue
		}
		out = append(out, meta.Clone())
	}
	slices.SortStableFunc(out, func(a, b *domain.TokenMetadata) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// DeleteExpiredOrRevoked removes every record prunable at now.
func (s *Store) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var removed []*domain.TokenMetadata
	s.records.DeleteFunc(func(_ string, meta *domain.TokenMetadata) bool {
		if meta.IsPrunable(now) {
			removed = append(removed, meta)
			return true
		}
		return false
	})
	for _, meta := range removed {
		s.userIndex.Remove(meta.UserID, meta.LookupKey)
	}
	return len(removed), nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return s.records.Count()
}
