package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/events"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

var testSecret = bytes.Repeat([]byte{0x5a}, 32)

// fakeStore is an in-memory TokenStore with failure injection.
type fakeStore struct {
	mu        sync.Mutex
	records   map[string]*domain.TokenMetadata
	conflicts int
	failOps   map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]*domain.TokenMetadata),
		failOps: make(map[string]error),
	}
}

func (s *fakeStore) fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOps[op] = err
}

func (s *fakeStore) Insert(_ context.Context, meta *domain.TokenMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["insert"]; err != nil {
		return err
	}
	if s.conflicts > 0 {
		s.conflicts--
		return domain.ErrTokenHashConflict
	}
	if _, ok := s.records[meta.LookupKey]; ok {
		return domain.ErrTokenHashConflict
	}
	s.records[meta.LookupKey] = meta.Clone()
	return nil
}

func (s *fakeStore) FindByHash(_ context.Context, lookupKey string) (*domain.TokenMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["find"]; err != nil {
		return nil, err
	}
	meta, ok := s.records[lookupKey]
	if !ok {
		return nil, nil
	}
	return meta.Clone(), nil
}

func (s *fakeStore) MarkRevoked(_ context.Context, lookupKey string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["revoke"]; err != nil {
		return false, err
	}
	meta, ok := s.records[lookupKey]
	if !ok {
		return false, nil
	}
	return meta.Revoke(at), nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID domain.UserID, opts ListOptions) ([]*domain.TokenMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["list"]; err != nil {
		return nil, err
	}
	var out []*domain.TokenMetadata
	for _, meta := range s.records {
		if meta.UserID == userID && opts.Keep(meta) {
			out = append(out, meta.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) DeleteExpiredOrRevoked(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["prune"]; err != nil {
		return 0, err
	}
	n := 0
	for k, meta := range s.records {
		if meta.IsPrunable(now) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) all() []*domain.TokenMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.TokenMetadata, 0, len(s.records))
	for _, meta := range s.records {
		out = append(out, meta.Clone())
	}
	return out
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeRecorder counts metric calls.
type fakeRecorder struct {
	mu          sync.Mutex
	issued      int
	validations map[string]int
	revoked     map[string]int
	pruned      int
	storeErrors map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		validations: make(map[string]int),
		revoked:     make(map[string]int),
		storeErrors: make(map[string]int),
	}
}

func (r *fakeRecorder) TokenIssued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
}

func (r *fakeRecorder) Validation(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validations[result]++
}

func (r *fakeRecorder) Revoked(mode string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[mode] += n
}

func (r *fakeRecorder) Pruned(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruned += n
}

func (r *fakeRecorder) StoreError(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storeErrors[op]++
}

func (r *fakeRecorder) HTTPRequest(string, string, int, time.Duration) {}

// fakePublisher records events and optionally fails.
type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

// newTestManager builds a manager over a fresh fake store and clock.
func newTestManager(t *testing.T, cfg *TokenManagerConfig, opts ...Option) (*TokenManager, *fakeStore, *fakeClock) {
	t.Helper()
	store := newFakeStore()
	clock := newFakeClock()
	c := DefaultTokenManagerConfig()
	if cfg != nil {
		c = *cfg
	}
	opts = append([]Option{WithClock(clock.Now), WithLogger(logger.Nop())}, opts...)
	m, err := NewTokenManager(store, c, testSecret, opts...)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return m, store, clock
}

func mustGenerate(t *testing.T, m *TokenManager, user string, opts ...GenerateOption) *domain.SecureToken {
	t.Helper()
	tok, err := m.GenerateToken(context.Background(), domain.MustParseUserID(user), opts...)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return tok
}
