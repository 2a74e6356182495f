package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

// Key layout:
//
//	tok/<lookup_key>                         -> JSON TokenMetadata
//	usr/<user_id> 0x00 <created_at ns BE> <lookup_key> -> empty
//
// User ids never contain control characters, so 0x00 ends the user part and
// a prefix scan returns one user's keys in creation order.
var (
	recordPrefix = []byte("tok/")
	userPrefix   = []byte("usr/")
)

const (
	// maxTxnRetries bounds optimistic retries on badger.ErrConflict.
	maxTxnRetries = 8

	// pruneBatch is the number of records deleted per transaction.
	pruneBatch = 256
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: badger store closed")

// BadgerConfig tunes the embedded Badger database.
type BadgerConfig struct {
	// Dir holds the LSM tree and value log. Required unless InMemory.
	Dir string

	// InMemory keeps everything in RAM. Tests only.
	InMemory bool

	// GCInterval is the pause between value log GC runs. Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the stale fraction a value log file needs before
	// GC rewrites it.
	GCDiscardRatio float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// DefaultBadgerConfig returns the production defaults for dir.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:            dir,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
		CacheSize:      64 << 20,
		SyncWrites:     true,
	}
}

// BadgerStore is a service.TokenStore persisted in Badger.
type BadgerStore struct {
	db  *badger.DB
	cfg BadgerConfig
	log logger.Logger

	lastGC     atomic.Int64 // unix ms
	gcRewrites atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

var _ service.TokenStore = (*BadgerStore)(nil)

// OpenBadger opens (or creates) the database and starts the GC loop.
func OpenBadger(cfg BadgerConfig, log logger.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1 {
		cfg.GCDiscardRatio = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{log: log.With("component", "badger")})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}
	if cfg.CacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.CacheSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	log.Info("badger store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)
	return s, nil
}

func recordKey(lookupKey string) []byte {
	return append(bytes.Clone(recordPrefix), lookupKey...)
}

func userScanPrefix(userID domain.UserID) []byte {
	k := make([]byte, 0, len(userPrefix)+len(userID)+1)
	k = append(k, userPrefix...)
	k = append(k, userID...)
	return append(k, 0)
}

func userKey(meta *domain.TokenMetadata) []byte {
	k := userScanPrefix(meta.UserID)
	k = binary.BigEndian.AppendUint64(k, uint64(meta.CreatedAt.UnixNano()))
	return append(k, meta.LookupKey...)
}

// update runs fn in a read-write transaction, retrying write conflicts.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := s.usable(ctx); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt >= maxTxnRetries {
			return err
		}
	}
}

func (s *BadgerStore) usable(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func getRecord(txn *badger.Txn, lookupKey string) (*domain.TokenMetadata, error) {
	item, err := txn.Get(recordKey(lookupKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta domain.TokenMetadata
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	if err != nil {
		return nil, fmt.Errorf("badger: decode %s: %w", domain.MaskLookupKey(lookupKey), err)
	}
	return &meta, nil
}

func putRecord(txn *badger.Txn, meta *domain.TokenMetadata) error {
	val, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return txn.Set(recordKey(meta.LookupKey), val)
}

// Insert writes the record and its user index entry in one transaction.
func (s *BadgerStore) Insert(ctx context.Context, meta *domain.TokenMetadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		existing, err := getRecord(txn, meta.LookupKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrTokenHashConflict
		}
		if err := putRecord(txn, meta); err != nil {
			return err
		}
		return txn.Set(userKey(meta), nil)
	})
}

// FindByHash returns the record, or nil, nil.
func (s *BadgerStore) FindByHash(ctx context.Context, lookupKey string) (*domain.TokenMetadata, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	var meta *domain.TokenMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		meta, err = getRecord(txn, lookupKey)
		return err
	})
	return meta, err
}

// MarkRevoked flips the record inside a transaction. A racing revoker
// conflicts, retries and then sees the record already revoked.
func (s *BadgerStore) MarkRevoked(ctx context.Context, lookupKey string, at time.Time) (bool, error) {
	var changed bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = false
		meta, err := getRecord(txn, lookupKey)
		if err != nil || meta == nil {
			return err
		}
		if !meta.Revoke(at) {
			return nil
		}
		changed = true
		return putRecord(txn, meta)
	})
	return changed, err
}

// ListByUser scans the user index and loads each record.
func (s *BadgerStore) ListByUser(ctx context.Context, userID domain.UserID, opts service.ListOptions) ([]*domain.TokenMetadata, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	prefix := userScanPrefix(userID)
	var out []*domain.TokenMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) < len(prefix)+8 {
				continue
			}
			lookupKey := string(key[len(prefix)+8:])
			meta, err := getRecord(txn, lookupKey)
			if err != nil {
				return err
			}
			if meta == nil || !opts.Keep(meta) {
				continue
			}
			out = append(out, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys already sort by created_at; pre-1970 timestamps would not.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteExpiredOrRevoked scans every record and deletes the prunable ones
// in batches.
func (s *BadgerStore) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int, error) {
	if err := s.usable(ctx); err != nil {
		return 0, err
	}

	var victims []*domain.TokenMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = recordPrefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var meta domain.TokenMetadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return err
			}
			if meta.IsPrunable(now) {
				victims = append(victims, &meta)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(victims); start += pruneBatch {
		batch := victims[start:min(start+pruneBatch, len(victims))]
		n := 0
		err := s.update(ctx, func(txn *badger.Txn) error {
			n = 0
			for _, meta := range batch {
				if err := txn.Delete(recordKey(meta.LookupKey)); err != nil {
					return err
				}
				if err := txn.Delete(userKey(meta)); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return deleted, err
		}
		deleted += n
	}

	if deleted > 0 {
		s.log.Info("pruned token records", "count", deleted)
	}
	return deleted, nil
}

// GC runs value log GC until Badger reports nothing left to rewrite.
// It returns the number of files rewritten.
func (s *BadgerStore) GC(ctx context.Context) (int, error) {
	rewrites := 0
	if s.cfg.InMemory {
		return 0, nil
	}
	for {
		if err := s.usable(ctx); err != nil {
			return rewrites, err
		}
		err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return rewrites, fmt.Errorf("badger: gc: %w", err)
		}
		rewrites++
	}
	s.lastGC.Store(time.Now().UnixMilli())
	s.gcRewrites.Add(uint64(rewrites))
	return rewrites, nil
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)
	if s.cfg.GCInterval <= 0 || s.cfg.InMemory {
		<-s.stopCh
		return
	}

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if n, err := s.GC(ctx); err != nil {
				s.log.Error("badger gc failed", "error", err)
			} else if n > 0 {
				s.log.Info("badger gc completed", "rewrites", n)
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// RegisterMetrics exposes database size and GC gauges on reg.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	size := func(pick func(lsm, vlog int64) int64) func() float64 {
		return func() float64 {
			if s.closed.Load() {
				return 0
			}
			return float64(pick(s.db.Size()))
		}
	}
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qrtoken",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes.",
		}, size(func(lsm, _ int64) int64 { return lsm })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qrtoken",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes.",
		}, size(func(_, vlog int64) int64 { return vlog })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qrtoken",
			Subsystem: "badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix time of the last value log GC run.",
		}, func() float64 { return float64(s.lastGC.Load()) / 1000 }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "qrtoken",
			Subsystem: "badger",
			Name:      "gc_rewrites_total",
			Help:      "Value log files rewritten by GC.",
		}, func() float64 { return float64(s.gcRewrites.Load()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("badger: register metrics: %w", err)
		}
	}
	return nil
}

// Close stops the GC loop and closes the database. It is idempotent.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		<-s.doneCh
		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close db: %w", cerr)
			return
		}
		s.log.Info("badger store closed")
	})
	return err
}

// badgerLogger routes Badger's printf logging into logger.Logger.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(trimNewline(fmt.Sprintf(format, args...)))
}

func trimNewline(s string) string {
	return strings.TrimRight(s, "\n")
}
