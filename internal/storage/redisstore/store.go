package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

// DefaultKeyPrefix namespaces every key the store writes.
const DefaultKeyPrefix = "qrtoken:"

const (
	fieldData      = "data"
	fieldRevokedAt = "revoked_at"

	scanCount = 256
)

var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
if ARGV[4] ~= '' then
	redis.call('HSET', KEYS[1], 'revoked_at', ARGV[4])
end
return 1
`)

var revokeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
if redis.call('HSETNX', KEYS[1], 'revoked_at', ARGV[1]) == 1 then
	return 1
end
return 0
`)

// Config holds connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store is a service.TokenStore backed by Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
	log    logger.Logger
}

var _ service.TokenStore = (*Store)(nil)

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string, log logger.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{client: client, prefix: prefix, log: log}
}

// Dial connects to cfg.Addr and pings it before returning.
func Dial(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redisstore: addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: connect %s: %w", cfg.Addr, err)
	}

	s := New(client, cfg.KeyPrefix, log)
	s.log.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB, "prefix", s.prefix)
	return s, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) recordKey(lookupKey string) string {
	return s.prefix + "tok:" + lookupKey
}

func (s *Store) userKey(userID domain.UserID) string {
	return s.prefix + "usr:" + string(userID)
}

// Insert writes the record and indexes it under its user atomically.
func (s *Store) Insert(ctx context.Context, meta *domain.TokenMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := meta.Validate(); err != nil {
		return err
	}

	// Revocation state lives in its own field.
	stored := meta.Clone()
	stored.Revoked = false
	stored.RevokedAt = nil
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("redisstore: encode record: %w", err)
	}

	revokedAt := ""
	if meta.Revoked && meta.RevokedAt != nil {
		revokedAt = meta.RevokedAt.UTC().Format(time.RFC3339Nano)
	}

	keys := []string{s.recordKey(meta.LookupKey), s.userKey(meta.UserID)}
	created, err := insertScript.Run(ctx, s.client, keys,
		data, meta.CreatedAt.UnixMicro(), meta.LookupKey, revokedAt).Int()
	if err != nil {
		return fmt.Errorf("redisstore: insert: %w", err)
	}
	if created == 0 {
		return domain.ErrTokenHashConflict
	}
	return nil
}

// FindByHash returns the record, or nil, nil.
func (s *Store) FindByHash(ctx context.Context, lookupKey string) (*domain.TokenMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields, err := s.client.HGetAll(ctx, s.recordKey(lookupKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: find: %w", err)
	}
	return decode(fields)
}

// decode builds a record from its hash fields. An empty hash is a miss.
func decode(fields map[string]string) (*domain.TokenMetadata, error) {
	data, ok := fields[fieldData]
	if !ok {
		return nil, nil
	}
	var meta domain.TokenMetadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("redisstore: decode record: %w", err)
	}
	if raw, ok := fields[fieldRevokedAt]; ok {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("redisstore: decode revoked_at: %w", err)
		}
		meta.Revoke(at)
	}
	return &meta, nil
}

// MarkRevoked sets revoked_at unless it is already present.
func (s *Store) MarkRevoked(ctx context.Context, lookupKey string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	stamp := at.UTC().Format(time.RFC3339Nano)
	changed, err := revokeScript.Run(ctx, s.client, []string{s.recordKey(lookupKey)}, stamp).Int()
	if err != nil {
		return false, fmt.Errorf("redisstore: revoke: %w", err)
	}
	return changed == 1, nil
}

// ListByUser reads the user's sorted set and loads each record in one
// pipeline. Index entries whose record is gone are dropped.
func (s *Store) ListByUser(ctx context.Context, userID domain.UserID, opts service.ListOptions) ([]*domain.TokenMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	userKey := s.userKey(userID)
	lookups, err := s.client.ZRange(ctx, userKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list index: %w", err)
	}
	if len(lookups) == 0 {
		return nil, nil
	}

	records, err := s.loadAll(ctx, lookups)
	if err != nil {
		return nil, err
	}

	var (
		out   []*domain.TokenMetadata
		stale []any
	)
	for i, meta := range records {
		if meta == nil {
			stale = append(stale, lookups[i])
			continue
		}
		if opts.Keep(meta) {
			out = append(out, meta)
		}
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, userKey, stale...).Err(); err != nil {
			s.log.Warn("drop stale index entries failed", "user_id", userID, "error", err)
		}
	}
	// Equal scores order by member; re-sort on the full timestamp.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) loadAll(ctx context.Context, lookups []string) ([]*domain.TokenMetadata, error) {
	cmds := make([]*redis.MapStringStringCmd, len(lookups))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, lk := range lookups {
			cmds[i] = p.HGetAll(ctx, s.recordKey(lk))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redisstore: load records: %w", err)
	}
	out := make([]*domain.TokenMetadata, len(lookups))
	for i, cmd := range cmds {
		meta, err := decode(cmd.Val())
		if err != nil {
			return nil, err
		}
		out[i] = meta
	}
	return out, nil
}

// DeleteExpiredOrRevoked scans every record key and removes the prunable
// ones together with their index entries.
func (s *Store) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	match := s.prefix + "tok:*"
	recordPrefixLen := len(s.prefix) + len("tok:")
	deleted := 0

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("redisstore: scan: %w", err)
		}

		lookups := make([]string, 0, len(keys))
		for _, k := range keys {
			lookups = append(lookups, k[recordPrefixLen:])
		}
		records, err := s.loadAll(ctx, lookups)
		if err != nil {
			return deleted, err
		}

		var victims []*domain.TokenMetadata
		for _, meta := range records {
			if meta != nil && meta.IsPrunable(now) {
				victims = append(victims, meta)
			}
		}
		if len(victims) > 0 {
			dels := make([]*redis.IntCmd, len(victims))
			_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
				for i, meta := range victims {
					dels[i] = p.Del(ctx, s.recordKey(meta.LookupKey))
					p.ZRem(ctx, s.userKey(meta.UserID), meta.LookupKey)
				}
				return nil
			})
			if err != nil {
				return deleted, fmt.Errorf("redisstore: delete: %w", err)
			}
			for _, d := range dels {
				deleted += int(d.Val())
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if deleted > 0 {
		s.log.Info("pruned token records", "count", deleted)
	}
	return deleted, nil
}

// Ping checks connectivity. The HTTP readiness probe calls it.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
