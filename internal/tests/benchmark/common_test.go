package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

// TokenCounts defines the prefilled token counts for benchmarking.
var TokenCounts = []int{1000, 10000, 100000}

// SmallTokenCounts for quick benchmarks.
var SmallTokenCounts = []int{1000, 5000}

var lookupSecret = bytes.Repeat([]byte{0x42}, 32)

func newManager(b *testing.B, store service.TokenStore) *service.TokenManager {
	b.Helper()
	m, err := service.NewTokenManager(store, service.DefaultTokenManagerConfig(), lookupSecret,
		service.WithLogger(logger.Nop()))
	if err != nil {
		b.Fatalf("NewTokenManager failed: %v", err)
	}
	return m
}

func userFor(i int) domain.UserID {
	return domain.MustParseUserID(fmt.Sprintf("user-%d", i%1000))
}

// prefill issues count tokens spread over 1000 users and returns their QR texts.
func prefill(ctx context.Context, b *testing.B, m *service.TokenManager, count int) []string {
	b.Helper()
	texts := make([]string, count)
	for i := 0; i < count; i++ {
		issued, err := m.IssueToken(ctx, userFor(i))
		if err != nil {
			b.Fatalf("IssueToken failed: %v", err)
		}
		texts[i] = issued.QRText
	}
	return texts
}
