package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) PruneTokens(ctx context.Context) (int, error) {
	p.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return 1, p.err
}

func TestSweeper_Loop(t *testing.T) {
	p := &countingPruner{}
	s := NewSweeper(p, 5*time.Millisecond, logger.Nop())
	s.Start()
	s.Start()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if p.calls.Load() < 2 {
		t.Fatalf("sweeps = %d, want >= 2", p.calls.Load())
	}
	after := p.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if p.calls.Load() != after {
		t.Error("sweeper kept running after Stop")
	}
}

func TestSweeper_ErrorsKeepLooping(t *testing.T) {
	p := &countingPruner{err: errors.New("store down")}
	s := NewSweeper(p, 5*time.Millisecond, logger.Nop())
	s.Start()
	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	if p.calls.Load() < 3 {
		t.Errorf("sweeps = %d, want >= 3", p.calls.Load())
	}
}

func TestSweeper_StopBeforeStart(t *testing.T) {
	p := &countingPruner{}
	s := NewSweeper(p, time.Millisecond, nil)
	s.Stop()
	s.Start()
	time.Sleep(10 * time.Millisecond)
	if p.calls.Load() != 0 {
		t.Errorf("sweeps = %d after Stop-then-Start, want 0", p.calls.Load())
	}
}

func TestSweeper_DefaultInterval(t *testing.T) {
	s := NewSweeper(&countingPruner{}, 0, nil)
	if s.interval != DefaultSweepInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultSweepInterval)
	}
}

func TestSweeper_SweepOnceWithManager(t *testing.T) {
	m, _, clock := newTestManager(t, nil)
	tok := mustGenerate(t, m, "alice")
	if _, err := m.RevokeToken(context.Background(), tok); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}
	clock.Advance(time.Minute)

	s := NewSweeper(m, time.Hour, logger.Nop())
	n, err := s.SweepOnce(context.Background())
	if err != nil || n != 1 {
		t.Errorf("SweepOnce() = %d, %v; want 1", n, err)
	}
}
