package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/events"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
	"github.com/yndnr/qrtoken-go/internal/telemetry/metric"
	"github.com/yndnr/qrtoken-go/pkg/token"
)

const (
	// MinLookupSecretLength is the shortest accepted HMAC key for lookup keys.
	MinLookupSecretLength = 32

	// MaxLabelLength bounds a token label in bytes.
	MaxLabelLength = 64

	// maxIssueAttempts bounds retries after a lookup key collision.
	maxIssueAttempts = 3
)

// Validation metric results besides the error kinds.
const (
	resultValid = "valid"
	resultError = "error"
)

// TokenManager owns the token lifecycle.
type TokenManager struct {
	store     TokenStore
	cfg       TokenManagerConfig
	codec     *token.Codec
	hasher    *token.Hasher
	generator *token.Generator
	lookupKey []byte

	// decoy is verified on lookup misses so a miss costs the same as a hit.
	decoy token.Hashed

	rand    io.Reader
	now     func() time.Time
	log     logger.Logger
	metrics metric.Recorder
	events  events.Publisher
	sealer  LabelSealer
}

// NewTokenManager creates a TokenManager.
//
// lookupSecret keys the deterministic fingerprint records are indexed by.
// Changing it orphans every stored record.
func NewTokenManager(store TokenStore, cfg TokenManagerConfig, lookupSecret []byte, opts ...Option) (*TokenManager, error) {
	if store == nil {
		return nil, errors.New("service: token store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if len(lookupSecret) < MinLookupSecretLength {
		return nil, fmt.Errorf("service: lookup secret must be at least %d bytes", MinLookupSecretLength)
	}

	hasher, err := token.NewHasher(cfg.HashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	m := &TokenManager{
		store:     store,
		cfg:       cfg,
		hasher:    hasher,
		lookupKey: slices.Clone(lookupSecret),
		rand:      rand.Reader,
		now:       time.Now,
		log:       logger.Default(),
		metrics:   metric.Nop{},
		events:    events.Noop{},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With("component", "token_manager")
	m.generator = token.NewGenerator(m.rand)
	m.codec = token.NewCodec(
		token.WithVersions(cfg.versions()...),
		token.WithEntropyBounds(token.DefaultEntropyBits, max(cfg.EntropyBits, 2*token.DefaultEntropyBits)),
	)

	decoyValue, err := token.NewGenerator(nil).Value(token.DefaultEntropyBits)
	if err != nil {
		return nil, domain.ErrEntropyUnavailable.WithCause(err)
	}
	if m.decoy, err = hasher.Hash(decoyValue); err != nil {
		return nil, domain.ErrEntropyUnavailable.WithCause(err)
	}
	return m, nil
}

// ============================================================================
// Issuance
// ============================================================================

// GenerateToken issues a token for userID and returns it with its raw value.
// This is the only point the raw value leaves the manager.
func (m *TokenManager) GenerateToken(ctx context.Context, userID domain.UserID, opts ...GenerateOption) (*domain.SecureToken, error) {
	issued, err := m.IssueToken(ctx, userID, opts...)
	if err != nil {
		return nil, err
	}
	return issued.Token, nil
}

// IssueToken is GenerateToken plus the rendered QR text and record view.
func (m *TokenManager) IssueToken(ctx context.Context, userID domain.UserID, opts ...GenerateOption) (*IssuedToken, error) {
	if _, err := domain.ParseUserID(userID.String()); err != nil {
		return nil, err
	}

	var o generateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("ttl must not be negative")
	}
	if o.label != "" {
		if m.sealer == nil {
			return nil, domain.ErrInvalidArgument.WithDetails("token labels are not enabled")
		}
		if len(o.label) > MaxLabelLength {
			return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("label exceeds %d bytes", MaxLabelLength))
		}
	}

	for attempt := 1; ; attempt++ {
		issued, meta, err := m.issueOnce(ctx, userID, o)
		if err == nil {
			m.metrics.TokenIssued()
			m.log.Info("token issued",
				"record_id", meta.ID,
				"user_id", meta.UserID.String(),
				"lookup", meta.LookupKey,
			)
			m.publish(ctx, events.Event{
				Type:       events.TypeTokenIssued,
				RecordID:   meta.ID,
				UserID:     meta.UserID.String(),
				LookupKey:  meta.LookupKey,
				OccurredAt: meta.CreatedAt,
			})
			return issued, nil
		}
		if !errors.Is(err, domain.ErrTokenHashConflict) || attempt >= maxIssueAttempts {
			return nil, err
		}
		m.log.Warn("lookup key collision, regenerating", "attempt", attempt)
	}
}

func (m *TokenManager) issueOnce(ctx context.Context, userID domain.UserID, o generateOptions) (*IssuedToken, *domain.TokenMetadata, error) {
	value, err := m.generator.Value(m.cfg.EntropyBits)
	if err != nil {
		m.log.Error("entropy source failed", "error", err)
		return nil, nil, domain.ErrEntropyUnavailable.WithCause(err)
	}

	now := m.now().UTC()
	id, err := domain.NewTokenID(now)
	if err != nil {
		return nil, nil, err
	}
	hashed, err := m.hasher.Hash(value)
	if err != nil {
		return nil, nil, domain.ErrEntropyUnavailable.WithCause(err)
	}

	meta := &domain.TokenMetadata{
		ID:        id,
		LookupKey: m.lookupKeyFor(value),
		Hashed:    domain.HashedToken(hashed),
		UserID:    userID,
		Version:   m.cfg.Version,
		CreatedAt: now,
	}
	ttl := o.ttl
	if ttl == 0 {
		ttl = m.cfg.Lifetime()
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		meta.ExpiresAt = &exp
	}
	if o.label != "" {
		sealed, err := m.sealer.Seal([]byte(o.label), []byte(id))
		if err != nil {
			return nil, nil, domain.ErrInternalServer.WithCause(err)
		}
		meta.SealedLabel = sealed
	}

	if err := m.store.Insert(ctx, meta); err != nil {
		if errors.Is(err, domain.ErrTokenHashConflict) {
			return nil, nil, err
		}
		return nil, nil, m.storeFailure("insert", err, "record_id", id)
	}

	tok := &domain.SecureToken{
		Value:     value,
		Version:   m.cfg.Version,
		Checksum:  token.Checksum(m.cfg.Version, value),
		CreatedAt: now,
	}
	return &IssuedToken{
		Token:  tok,
		QRText: m.FormatTokenForQR(tok),
		Info:   m.info(meta, now),
	}, meta, nil
}

// ============================================================================
// Wire format
// ============================================================================

// FormatTokenForQR renders tok as QR text. A nil token renders as "".
func (m *TokenManager) FormatTokenForQR(tok *domain.SecureToken) string {
	if tok == nil {
		return ""
	}
	return m.codec.Encode(token.Encoded{Version: tok.Version, Value: tok.Value, Checksum: tok.Checksum})
}

// ExtractTokenFromQR parses QR text and returns nil on any decode failure.
//
// A non-nil result is well-formed and checksum-intact, nothing more: it has
// not been looked up and CreatedAt is zero.
func (m *TokenManager) ExtractTokenFromQR(text string) *domain.SecureToken {
	enc, err := m.codec.Decode(text)
	if err != nil {
		return nil
	}
	return &domain.SecureToken{Value: enc.Value, Version: enc.Version, Checksum: enc.Checksum}
}

func decodeKind(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, token.ErrUnsupportedVersion):
		return domain.ErrorUnsupportedVersion
	case errors.Is(err, token.ErrMalformedData):
		return domain.ErrorMalformedData
	case errors.Is(err, token.ErrInvalidChecksum):
		return domain.ErrorInvalidChecksum
	default:
		return domain.ErrorInvalidFormat
	}
}

// ============================================================================
// Validation and resolution
// ============================================================================

// ValidateToken checks QR text end to end.
//
// Caller-input failures come back as an invalid result. The error is
// non-nil only for infrastructure failures.
func (m *TokenManager) ValidateToken(ctx context.Context, text string) (*domain.ValidationResult, error) {
	res, _, err := m.check(ctx, text)
	switch {
	case err != nil:
		m.metrics.Validation(resultError)
		return nil, err
	case res.Valid:
		m.metrics.Validation(resultValid)
	default:
		m.metrics.Validation(res.Kind.String())
	}
	return res, nil
}

// ResolveTokenToUser returns the owner of an active token.
// ok is false for nil, damaged, unknown, revoked or expired tokens.
func (m *TokenManager) ResolveTokenToUser(ctx context.Context, tok *domain.SecureToken) (domain.UserID, bool, error) {
	if tok == nil {
		return "", false, nil
	}
	res, meta, err := m.check(ctx, m.FormatTokenForQR(tok))
	if err != nil {
		return "", false, err
	}
	if !res.Valid {
		return "", false, nil
	}
	return meta.UserID, true, nil
}

// check returns the verdict for text and, when valid, the matching record.
func (m *TokenManager) check(ctx context.Context, text string) (*domain.ValidationResult, *domain.TokenMetadata, error) {
	enc, err := m.codec.Decode(text)
	if err != nil {
		return domain.Invalid(decodeKind(err)), nil, nil
	}

	meta, err := m.find(ctx, enc.Value)
	if err != nil {
		return nil, nil, err
	}
	if meta == nil || meta.Version != enc.Version || !meta.IsActive(m.now()) {
		return domain.Invalid(domain.ErrorExpiredToken), nil, nil
	}

	return domain.Valid(&domain.SecureToken{
		Value:     enc.Value,
		Version:   enc.Version,
		Checksum:  enc.Checksum,
		CreatedAt: meta.CreatedAt,
	}), meta, nil
}

// find looks a raw value up by lookup key and verifies its salted hash.
// Both a miss and a hash mismatch return nil, nil.
func (m *TokenManager) find(ctx context.Context, value string) (*domain.TokenMetadata, error) {
	lookupKey := m.lookupKeyFor(value)
	meta, err := m.store.FindByHash(ctx, lookupKey)
	if err != nil {
		return nil, m.storeFailure("find", err, "lookup", lookupKey)
	}
	if meta == nil {
		m.hasher.Verify(value, m.decoy)
		return nil, nil
	}
	if !m.hasher.Verify(value, token.Hashed(meta.Hashed)) {
		m.log.Warn("lookup key matched but hash did not", "lookup", lookupKey, "record_id", meta.ID)
		return nil, nil
	}
	return meta, nil
}

func (m *TokenManager) lookupKeyFor(value string) string {
	return domain.LookupKeyPrefix + token.Fingerprint(m.lookupKey, value)
}

// ============================================================================
// Listing
// ============================================================================

// GetUserTokens returns a user's active tokens, oldest first.
func (m *TokenManager) GetUserTokens(ctx context.Context, userID domain.UserID) ([]*TokenInfo, error) {
	return m.ListUserTokens(ctx, userID, false)
}

// ListUserTokens returns a user's tokens, oldest first. includeInactive adds
// revoked and expired records that have not been pruned yet.
func (m *TokenManager) ListUserTokens(ctx context.Context, userID domain.UserID, includeInactive bool) ([]*TokenInfo, error) {
	if _, err := domain.ParseUserID(userID.String()); err != nil {
		return nil, err
	}
	now := m.now()
	recs, err := m.store.ListByUser(ctx, userID, ListOptions{IncludeInactive: includeInactive, Now: now})
	if err != nil {
		return nil, m.storeFailure("list", err, "user_id", userID.String())
	}

	out := make([]*TokenInfo, 0, len(recs))
	for _, meta := range recs {
		if includeInactive || meta.IsActive(now) {
			out = append(out, m.info(meta, now))
		}
	}
	slices.SortStableFunc(out, func(a, b *TokenInfo) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (m *TokenManager) info(meta *domain.TokenMetadata, now time.Time) *TokenInfo {
	info := &TokenInfo{
		ID:        meta.ID,
		UserID:    meta.UserID,
		Version:   meta.Version,
		State:     meta.State(now),
		CreatedAt: meta.CreatedAt,
		ExpiresAt: meta.ExpiresAt,
		RevokedAt: meta.RevokedAt,
	}
	if len(meta.SealedLabel) > 0 && m.sealer != nil {
		label, err := m.sealer.Open(meta.SealedLabel, []byte(meta.ID))
		if err != nil {
			m.log.Warn("token label unreadable", "record_id", meta.ID, "error", err)
		} else {
			info.Label = string(label)
		}
	}
	return info
}

// ============================================================================
// Revocation
// ============================================================================

// RevokeToken revokes the record tok belongs to. It returns true only on
// the call that changed the record; later calls and unknown tokens return false.
func (m *TokenManager) RevokeToken(ctx context.Context, tok *domain.SecureToken) (bool, error) {
	if tok == nil {
		return false, nil
	}
	enc, err := m.codec.Decode(m.FormatTokenForQR(tok))
	if err != nil {
		return false, nil
	}
	meta, err := m.find(ctx, enc.Value)
	if err != nil || meta == nil {
		return false, err
	}
	return m.revoke(ctx, meta, metric.RevokeModeToken)
}

// RevokeTokenByID revokes one of userID's records by its public id.
// Records of other users report domain.ErrTokenNotFound.
func (m *TokenManager) RevokeTokenByID(ctx context.Context, userID domain.UserID, id string) (bool, error) {
	if _, err := domain.ParseUserID(userID.String()); err != nil {
		return false, err
	}
	if !domain.IsValidTokenID(id) {
		return false, domain.ErrInvalidArgument.WithDetails("invalid token id")
	}
	recs, err := m.store.ListByUser(ctx, userID, ListOptions{IncludeInactive: true})
	if err != nil {
		return false, m.storeFailure("list", err, "user_id", userID.String())
	}
	for _, meta := range recs {
		if meta.ID == id {
			return m.revoke(ctx, meta, metric.RevokeModeID)
		}
	}
	return false, domain.ErrTokenNotFound
}

// RevokeAllUserTokens revokes every active record of userID and returns how
// many changed.
func (m *TokenManager) RevokeAllUserTokens(ctx context.Context, userID domain.UserID) (int, error) {
	if _, err := domain.ParseUserID(userID.String()); err != nil {
		return 0, err
	}
	now := m.now().UTC()
	recs, err := m.store.ListByUser(ctx, userID, ListOptions{Now: now})
	if err != nil {
		return 0, m.storeFailure("list", err, "user_id", userID.String())
	}

	count := 0
	for _, meta := range recs {
		if !meta.IsActive(now) {
			continue
		}
		ok, err := m.store.MarkRevoked(ctx, meta.LookupKey, now)
		if err != nil {
			m.metrics.Revoked(metric.RevokeModeUser, count)
			return count, m.storeFailure("revoke", err, "record_id", meta.ID)
		}
		if ok {
			count++
		}
	}

	m.metrics.Revoked(metric.RevokeModeUser, count)
	m.log.Info("user tokens revoked", "user_id", userID.String(), "count", count)
	if count > 0 {
		m.publish(ctx, events.Event{
			Type:       events.TypeUserTokensRevoked,
			UserID:     userID.String(),
			Count:      count,
			OccurredAt: now,
		})
	}
	return count, nil
}

func (m *TokenManager) revoke(ctx context.Context, meta *domain.TokenMetadata, mode string) (bool, error) {
	now := m.now().UTC()
	ok, err := m.store.MarkRevoked(ctx, meta.LookupKey, now)
	if err != nil {
		return false, m.storeFailure("revoke", err, "record_id", meta.ID)
	}
	if !ok {
		return false, nil
	}

	m.metrics.Revoked(mode, 1)
	m.log.Info("token revoked", "record_id", meta.ID, "user_id", meta.UserID.String(), "mode", mode)
	m.publish(ctx, events.Event{
		Type:       events.TypeTokenRevoked,
		RecordID:   meta.ID,
		UserID:     meta.UserID.String(),
		LookupKey:  meta.LookupKey,
		OccurredAt: now,
	})
	return true, nil
}

// ============================================================================
// Retention
// ============================================================================

// PruneTokens deletes every expired or revoked record. The scan path never
// calls it; the retention sweeper does.
func (m *TokenManager) PruneTokens(ctx context.Context) (int, error) {
	now := m.now().UTC()
	n, err := m.store.DeleteExpiredOrRevoked(ctx, now)
	if err != nil {
		return 0, m.storeFailure("prune", err)
	}
	m.metrics.Pruned(n)
	if n > 0 {
		m.log.Info("pruned token records", "count", n)
		m.publish(ctx, events.Event{Type: events.TypeTokensPruned, Count: n, OccurredAt: now})
	}
	return n, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (m *TokenManager) storeFailure(op string, err error, args ...any) error {
	m.metrics.StoreError(op)
	m.log.Error("token store "+op+" failed", append(args, "error", err)...)
	return domain.ErrStorageError.WithCause(err)
}

// publish delivers e best-effort. Failures never fail the operation.
func (m *TokenManager) publish(ctx context.Context, e events.Event) {
	if err := m.events.Publish(ctx, e); err != nil {
		m.log.Warn("event publish failed", "type", e.Type, "error", err)
	}
}
