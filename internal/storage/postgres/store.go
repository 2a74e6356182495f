package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

const columns = `lookup_key, id, user_id, version, hash, salt, hash_algorithm,
	created_at, expires_at, revoked, revoked_at, sealed_label`

// Config holds connection pool settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// ConnectRetries is the number of extra connection attempts, one
	// second apart, before Connect gives up.
	ConnectRetries int
}

// DefaultConfig returns pool defaults for dsn.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    25,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectRetries:  5,
	}
}

// Store is a service.TokenStore backed by PostgreSQL.
type Store struct {
	db  *sqlx.DB
	log logger.Logger
}

var _ service.TokenStore = (*Store)(nil)

// New wraps an open database handle.
func New(db *sqlx.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: db, log: log}
}

// Connect opens the pool, retrying until the server answers.
func Connect(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	var (
		db  *sqlx.DB
		err error
	)
	for attempt := 0; ; attempt++ {
		db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
		if err == nil {
			break
		}
		if attempt >= cfg.ConnectRetries {
			return nil, fmt.Errorf("postgres: connect after %d attempts: %w", attempt+1, err)
		}
		log.Warn("postgres connect failed, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	log.Info("connected to postgres", "max_open_conns", cfg.MaxOpenConns)
	return New(db, log), nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// tokenRow is the flat column mapping of domain.TokenMetadata.
type tokenRow struct {
	LookupKey     string       `db:"lookup_key"`
	ID            string       `db:"id"`
	UserID        string       `db:"user_id"`
	Version       int          `db:"version"`
	Hash          string       `db:"hash"`
	Salt          string       `db:"salt"`
	HashAlgorithm string       `db:"hash_algorithm"`
	CreatedAt     time.Time    `db:"created_at"`
	ExpiresAt     sql.NullTime `db:"expires_at"`
	Revoked       bool         `db:"revoked"`
	RevokedAt     sql.NullTime `db:"revoked_at"`
	SealedLabel   []byte       `db:"sealed_label"`
}

func toRow(m *domain.TokenMetadata) tokenRow {
	r := tokenRow{
		LookupKey:     m.LookupKey,
		ID:            m.ID,
		UserID:        string(m.UserID),
		Version:       m.Version,
		Hash:          m.Hashed.Hash,
		Salt:          m.Hashed.Salt,
		HashAlgorithm: m.Hashed.Algorithm,
		CreatedAt:     m.CreatedAt.UTC(),
		Revoked:       m.Revoked,
		SealedLabel:   m.SealedLabel,
	}
	if m.ExpiresAt != nil {
		r.ExpiresAt = sql.NullTime{Time: m.ExpiresAt.UTC(), Valid: true}
	}
	if m.RevokedAt != nil {
		r.RevokedAt = sql.NullTime{Time: m.RevokedAt.UTC(), Valid: true}
	}
	return r
}

func (r tokenRow) toDomain() *domain.TokenMetadata {
	m := &domain.TokenMetadata{
		ID:        r.ID,
		LookupKey: r.LookupKey,
		Hashed: domain.HashedToken{
			Hash:      r.Hash,
			Salt:      r.Salt,
			Algorithm: r.HashAlgorithm,
		},
		UserID:      domain.UserID(r.UserID),
		Version:     r.Version,
		CreatedAt:   r.CreatedAt.UTC(),
		Revoked:     r.Revoked,
		SealedLabel: r.SealedLabel,
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time.UTC()
		m.ExpiresAt = &t
	}
	if r.RevokedAt.Valid {
		t := r.RevokedAt.Time.UTC()
		m.RevokedAt = &t
	}
	return m
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Insert adds a row. Any unique violation is reported as a hash conflict.
func (s *Store) Insert(ctx context.Context, meta *domain.TokenMetadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO qr_tokens (`+columns+`) VALUES (
		:lookup_key, :id, :user_id, :version, :hash, :salt, :hash_algorithm,
		:created_at, :expires_at, :revoked, :revoked_at, :sealed_label)`, toRow(meta))
	if isUniqueViolation(err) {
		return domain.ErrTokenHashConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}
	return nil
}

// FindByHash returns the row, or nil, nil.
func (s *Store) FindByHash(ctx context.Context, lookupKey string) (*domain.TokenMetadata, error) {
	var row tokenRow
	err := s.db.GetContext(ctx, &row, `SELECT `+columns+` FROM qr_tokens WHERE lookup_key = $1`, lookupKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find: %w", err)
	}
	return row.toDomain(), nil
}

// MarkRevoked is a single conditional UPDATE, so concurrent callers race
// on the row lock and only one sees an affected row.
func (s *Store) MarkRevoked(ctx context.Context, lookupKey string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE qr_tokens SET revoked = TRUE, revoked_at = $2 WHERE lookup_key = $1 AND NOT revoked`,
		lookupKey, at.UTC())
	if err != nil {
		return false, fmt.Errorf("postgres: revoke: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: revoke: %w", err)
	}
	return n == 1, nil
}

// ListByUser returns the user's rows, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID domain.UserID, opts service.ListOptions) ([]*domain.TokenMetadata, error) {
	query := `SELECT ` + columns + ` FROM qr_tokens WHERE user_id = $1`
	args := []any{string(userID)}
	if !opts.IncludeInactive {
		query += ` AND NOT revoked`
		if !opts.Now.IsZero() {
			query += ` AND (expires_at IS NULL OR expires_at >= $2)`
			args = append(args, opts.Now.UTC())
		}
	}
	// created_at is stored in microseconds; seq keeps insertion order on ties.
	query += ` ORDER BY created_at, seq`

	var rows []tokenRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	out := make([]*domain.TokenMetadata, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// DeleteExpiredOrRevoked removes prunable rows in one statement.
func (s *Store) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM qr_tokens WHERE revoked OR (expires_at IS NOT NULL AND expires_at < $1)`,
		now.UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: prune: %w", err)
	}
	if n > 0 {
		s.log.Info("pruned token records", "count", n)
	}
	return int(n), nil
}
