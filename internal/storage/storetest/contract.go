// Package storetest is the behavioural contract every service.TokenStore
// adapter runs in its own tests.
package storetest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) service.TokenStore

// base is microsecond aligned so SQL timestamp columns round-trip exactly.
var base = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertFind", func(t *testing.T) { testInsertFind(t, newStore(t)) })
	t.Run("FindMissing", func(t *testing.T) { testFindMissing(t, newStore(t)) })
	t.Run("DuplicateLookupKey", func(t *testing.T) { testDuplicate(t, newStore(t)) })
	t.Run("MarkRevoked", func(t *testing.T) { testMarkRevoked(t, newStore(t)) })
	t.Run("MarkRevokedConcurrent", func(t *testing.T) { testMarkRevokedConcurrent(t, newStore(t)) })
	t.Run("ListByUser", func(t *testing.T) { testListByUser(t, newStore(t)) })
	t.Run("DeleteExpiredOrRevoked", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("ReturnsCopies", func(t *testing.T) { testCopies(t, newStore(t)) })
	t.Run("CanceledContext", func(t *testing.T) { testCanceled(t, newStore(t)) })
}

// NewRecord builds a valid record for user created at createdAt.
func NewRecord(t *testing.T, user string, createdAt time.Time, expiresAt *time.Time) *domain.TokenMetadata {
	t.Helper()
	id, err := domain.NewTokenID(createdAt)
	require.NoError(t, err)
	return &domain.TokenMetadata{
		ID:        id,
		LookupKey: domain.LookupKeyPrefix + randomHex(t, 32),
		Hashed: domain.HashedToken{
			Hash:      randomHex(t, 32),
			Salt:      randomHex(t, 16),
			Algorithm: "sha256",
		},
		UserID:    domain.MustParseUserID(user),
		Version:   1,
		CreatedAt: createdAt.UTC(),
		ExpiresAt: expiresAt,
	}
}

func randomHex(t *testing.T, n int) string {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func at(d time.Duration) *time.Time {
	v := base.Add(d)
	return &v
}

func assertSameRecord(t *testing.T, want, got *domain.TokenMetadata) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.LookupKey, got.LookupKey)
	assert.Equal(t, want.Hashed, got.Hashed)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.Version, got.Version)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
	if want.ExpiresAt == nil {
		assert.Nil(t, got.ExpiresAt)
	} else {
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, want.ExpiresAt.Equal(*got.ExpiresAt))
	}
	assert.Equal(t, want.Revoked, got.Revoked)
	assert.Equal(t, len(want.SealedLabel), len(got.SealedLabel))
	if len(want.SealedLabel) > 0 {
		assert.Equal(t, want.SealedLabel, got.SealedLabel)
	}
}

func testInsertFind(t *testing.T, s service.TokenStore) {
	ctx := context.Background()
	plain := NewRecord(t, "alice", base, nil)
	labelled := NewRecord(t, "alice", base.Add(time.Second), at(time.Hour))
	labelled.SealedLabel = []byte{0x01, 0xde, 0xad, 0xbe, 0xef}

	for _, rec := range []*domain.TokenMetadata{plain, labelled} {
		require.NoError(t, s.Insert(ctx, rec))
		got, err := s.FindByHash(ctx, rec.LookupKey)
		require.NoError(t, err)
		assertSameRecord(t, rec, got)
	}
}

func testFindMissing(t *testing.T, s service.TokenStore) {
	got, err := s.FindByHash(context.Background(), domain.LookupKeyPrefix+randomHex(t, 32))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testDuplicate(t *testing.T, s service.TokenStore) {
	ctx := context.Background()
	first := NewRecord(t, "alice", base, nil)
	require.NoError(t, s.Insert(ctx, first))

	dup := NewRecord(t, "bob", base.Add(time.Second), nil)
	dup.LookupKey = first.LookupKey
	err := s.Insert(ctx, dup)
	require.ErrorIs(t, err, domain.ErrTokenHashConflict)

	got, err := s.FindByHash(ctx, first.LookupKey)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, got.UserID, "conflicting insert overwrote the original")

	list, err := s.ListByUser(ctx, domain.MustParseUserID("bob"), service.ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	assert.Empty(t, list, "conflicting insert indexed under its user")
}

func testMarkRevoked(t *testing.T, s service.TokenStore) {
	ctx := context.Background()
	rec := NewRecord(t, "alice", base, nil)
	require.NoError(t, s.Insert(ctx, rec))

	revokedAt := base.Add(time.Minute)
	ok, err := s.MarkRevoked(ctx, rec.LookupKey, revokedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.FindByHash(ctx, rec.LookupKey)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	require.NotNil(t, got.RevokedAt)
	assert.True(t, got.RevokedAt.Equal(revokedAt))

	ok, err = s.MarkRevoked(ctx, rec.LookupKey, revokedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "second MarkRevoked reported a change")

	got, _ = s.FindByHash(ctx, rec.LookupKey)
	assert.True(t, got.RevokedAt.Equal(revokedAt), "second MarkRevoked moved revoked_at")

	ok, err = s.MarkRevoked(ctx, domain.LookupKeyPrefix+randomHex(t, 32), revokedAt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testMarkRevokedConcurrent(t *testing.T, s service.TokenStore) {
	ctx := context.Background()
	rec := NewRecord(t, "alice", base, nil)
	require.NoError(t, s.Insert(ctx, rec))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkRevoked(ctx, rec.LookupKey, base.Add(time.Minute))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func testListByUser(t *testing.T, s service.TokenStore) {
	ctx := context.Background()
	alice := domain.MustParseUserID("alice")

	r1 := NewRecord(t, "alice", base, nil)
	r2 := NewRecord(t, "alice", base.Add(time.Second), at(time.Hour))
	r3 := NewRecord(t, "alice", base.Add(2*time.Second), nil)
	r4 := NewRecord(t, "alice", base.Add(3*time.Second), nil)
	other := NewRecord(t, "bob", base.Add(time.Second), nil)

	// Inserted out of creation order on purpose.
	for _, rec := range []*domain.TokenMetadata{r3, r1, other, r4, r2} {
		require.NoError(t, s.Insert(ctx, rec))
	}
	_, err := s.MarkRevoked(ctx, r4.LookupKey, base.Add(time.Minute))
	require.NoError(t, err)

	ids := func(list []*domain.TokenMetadata) []string {
		out := make([]string, len(list))
		for i, m := range list {
			out[i] = m.ID
		}
		return out
	}

	all, err := s.ListByUser(ctx, alice, service.ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID, r2.ID, r3.ID, r4.ID}, ids(all))

	active, err := s.ListByUser(ctx, alice, service.ListOptions{Now: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID, r3.ID}, ids(active))

	atExpiry, err := s.ListByUser(ctx, alice, service.ListOptions{Now: *r2.ExpiresAt})
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID, r2.ID, r3.ID}, ids(atExpiry), "record at its expiry instant is active")

	notRevoked, err := s.ListByUser(ctx, alice, service.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID, r2.ID, r3.ID}, ids(notRevoked))

	none, err := s.ListByUser(ctx, domain.MustParseUserID("carol"), service.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDelete(t *testing.T, s service.TokenStore) {
	ctx := context.Background()
	active := NewRecord(t, "alice", base, nil)
	expired := NewRecord(t, "alice", base.Add(time.Second), at(30*time.Minute))
	future := NewRecord(t, "alice", base.Add(2*time.Second), at(48*time.Hour))
	revoked := NewRecord(t, "bob", base.Add(3*time.Second), nil)
	// Expires exactly at the prune instant, so it is still live.
	edge := NewRecord(t, "carol", base.Add(4*time.Second), at(time.Hour))
	for _, rec := range []*domain.TokenMetadata{active, expired, future, revoked, edge} {
		require.NoError(t, s.Insert(ctx, rec))
	}
	_, err := s.MarkRevoked(ctx, revoked.LookupKey, base.Add(time.Minute))
	require.NoError(t, err)

	n, err := s.DeleteExpiredOrRevoked(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, rec := range []*domain.TokenMetadata{expired, revoked} {
		got, err := s.FindByHash(ctx, rec.LookupKey)
		require.NoError(t, err)
		assert.Nil(t, got, "record %s survived pruning", rec.ID)
	}
	for _, rec := range []*domain.TokenMetadata{active, future, edge} {
		got, err := s.FindByHash(ctx, rec.LookupKey)
		require.NoError(t, err)
		assert.NotNil(t, got, "record %s was pruned", rec.ID)
	}

	list, err := s.ListByUser(ctx, domain.MustParseUserID("alice"), service.ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err = s.DeleteExpiredOrRevoked(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.DeleteExpiredOrRevoked(ctx, base.Add(time.Hour+time.Microsecond))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "record past its expiry was kept")
}

func testCopies(t *testing.T, s service.TokenStore) {
	ctx := context.Background()
	rec := NewRecord(t, "alice", base, nil)
	require.NoError(t, s.Insert(ctx, rec))

	rec.Revoked = true
	got, err := s.FindByHash(ctx, rec.LookupKey)
	require.NoError(t, err)
	assert.False(t, got.Revoked, "store aliases the inserted record")

	got.Revoked = true
	again, err := s.FindByHash(ctx, rec.LookupKey)
	require.NoError(t, err)
	assert.False(t, again.Revoked, "store aliases the returned record")
}

func testCanceled(t *testing.T, s service.TokenStore) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := NewRecord(t, "alice", base, nil)
	assert.Error(t, s.Insert(ctx, rec))
	_, err := s.FindByHash(ctx, rec.LookupKey)
	assert.Error(t, err)
}
