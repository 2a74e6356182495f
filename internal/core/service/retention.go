package service

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

// DefaultSweepInterval is used when a non-positive interval is configured.
const DefaultSweepInterval = time.Hour

// sweepTimeout bounds one prune call.
const sweepTimeout = 30 * time.Second

// Pruner deletes prunable records. *TokenManager implements it.
type Pruner interface {
	PruneTokens(ctx context.Context) (int, error)
}

// Sweeper periodically prunes expired and revoked token records.
type Sweeper struct {
	pruner   Pruner
	interval time.Duration
	log      logger.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSweeper creates a Sweeper. Call Start to begin sweeping.
func NewSweeper(p Pruner, interval time.Duration, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = logger.Default()
	}
	return &Sweeper{
		pruner:   p,
		interval: interval,
		log:      log.With("component", "retention"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background loop. Later calls are no-ops.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		s.log.Info("retention sweeper started", "interval", s.interval.String())
		go s.loop()
	})
}

// Stop signals the loop and waits for an in-flight sweep to finish.
// It is safe to call more than once, and before Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	// Consumes startOnce when the loop never ran, so Start after Stop is a no-op.
	s.startOnce.Do(func() { close(s.doneCh) })
	<-s.doneCh
}

// SweepOnce runs one prune with the sweep timeout.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	return s.pruner.PruneTokens(ctx)
}

func (s *Sweeper) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(context.Background()); err != nil {
				s.log.Error("retention sweep failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}
