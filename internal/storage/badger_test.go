package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/storage/storetest"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

func openTestBadger(t *testing.T, dir string) *BadgerStore {
	t.Helper()
	cfg := DefaultBadgerConfig(dir)
	cfg.GCInterval = 0
	cfg.SyncWrites = false
	s, err := OpenBadger(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	return s
}

func TestBadgerStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) service.TokenStore {
		s := openTestBadger(t, t.TempDir())
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestBadgerStoreContract_InMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) service.TokenStore {
		s, err := OpenBadger(BadgerConfig{InMemory: true}, nil)
		if err != nil {
			t.Fatalf("OpenBadger() error = %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestBadgerStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := openTestBadger(t, dir)
	rec := storetest.NewRecord(t, "alice", now, nil)
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := s.MarkRevoked(ctx, rec.LookupKey, now.Add(time.Minute)); err != nil {
		t.Fatalf("MarkRevoked() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s = openTestBadger(t, dir)
	defer s.Close()

	got, err := s.FindByHash(ctx, rec.LookupKey)
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if got == nil || !got.Revoked {
		t.Fatalf("FindByHash() after reopen = %+v, want revoked record", got)
	}
	list, err := s.ListByUser(ctx, rec.UserID, service.ListOptions{IncludeInactive: true})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Errorf("ListByUser() after reopen = %d records, want 1", len(list))
	}
}

func TestBadgerStore_Closed(t *testing.T) {
	s := openTestBadger(t, t.TempDir())
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	_, err := s.FindByHash(context.Background(), domain.LookupKeyPrefix+"00")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("FindByHash() after Close error = %v, want ErrClosed", err)
	}
}

func TestBadgerStore_InsertRejectsInvalid(t *testing.T) {
	s := openTestBadger(t, t.TempDir())
	defer s.Close()

	err := s.Insert(context.Background(), &domain.TokenMetadata{ID: "nope"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Insert() error = %v, want ErrInvalidArgument", err)
	}
}

func TestBadgerStore_GCAndMetrics(t *testing.T) {
	s := openTestBadger(t, t.TempDir())
	defer s.Close()

	reg := prometheus.NewRegistry()
	if err := s.RegisterMetrics(reg); err != nil {
		t.Fatalf("RegisterMetrics() error = %v", err)
	}
	if err := s.RegisterMetrics(reg); err == nil {
		t.Error("second RegisterMetrics() should fail on duplicate collectors")
	}

	if _, err := s.GC(context.Background()); err != nil {
		t.Fatalf("GC() error = %v", err)
	}

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 4 {
		t.Errorf("gathered %d series, want 4", n)
	}
	if v := gatheredValue(t, reg, "qrtoken_badger_last_gc_timestamp_seconds"); v <= 0 {
		t.Errorf("last_gc_timestamp_seconds = %v, want > 0", v)
	}
}

func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) == 1 {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
