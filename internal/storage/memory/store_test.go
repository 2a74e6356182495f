package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) service.TokenStore {
		return New(WithShards(4))
	})
}

func TestStore_InsertRejectsInvalid(t *testing.T) {
	s := New()
	err := s.Insert(context.Background(), &domain.TokenMetadata{ID: "bad"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Insert(invalid) error = %v, want ErrInvalidArgument", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_PruneCleansIndex(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rec := storetest.NewRecord(t, "alice", now, nil)
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := s.MarkRevoked(ctx, rec.LookupKey, now); err != nil {
		t.Fatalf("MarkRevoked() error = %v", err)
	}
	if n, _ := s.DeleteExpiredOrRevoked(ctx, now); n != 1 {
		t.Fatalf("DeleteExpiredOrRevoked() = %d, want 1", n)
	}
	if s.userIndex.Users() != 0 {
		t.Errorf("Users() = %d after prune, want 0", s.userIndex.Users())
	}
}

func TestUserIndex(t *testing.T) {
	idx := NewUserIndex()
	u := domain.MustParseUserID("alice")

	idx.Add(u, "k1")
	idx.Add(u, "k2")
	idx.Add(u, "k3")
	keys := idx.Get(u)
	if len(keys) != 3 || keys[0] != "k1" || keys[2] != "k3" {
		t.Fatalf("Get() = %v, want [k1 k2 k3]", keys)
	}

	keys[0] = "mutated"
	if idx.Get(u)[0] != "k1" {
		t.Error("Get() returned an aliased slice")
	}

	idx.Remove(u, "k2")
	if got := idx.Get(u); len(got) != 2 || got[1] != "k3" {
		t.Errorf("after Remove Get() = %v", got)
	}
	idx.Remove(u, "k1")
	idx.Remove(u, "k3")
	idx.Remove(u, "missing")
	if idx.Users() != 0 {
		t.Errorf("Users() = %d, want 0", idx.Users())
	}
}
