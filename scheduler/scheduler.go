// Package scheduler runs the retention sweep that deletes old decks.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PruneFunc deletes every deck created before cutoff and reports how many
// were removed.
type PruneFunc func(cutoff time.Time) (int, error)

// Sweep records the outcome of one retention pass.
type Sweep struct {
	At      time.Time `json:"at"`
	Cutoff  time.Time `json:"cutoff"`
	Removed int       `json:"removed"`
	Err     string    `json:"error,omitempty"`
}

// Scheduler prunes decks older than maxAge every interval.
type Scheduler struct {
	prune    PruneFunc
	maxAge   time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	last Sweep
}

// New creates a Scheduler. A non-positive maxAge disables pruning.
func New(prune PruneFunc, maxAge, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		prune:    prune,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start sweeps once immediately and then on every tick until ctx is done.
// The returned channel is closed when the loop has exited.
func (s *Scheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.maxAge <= 0 {
		s.logger.Info("retention disabled")
		close(done)
		return done
	}

	go func() {
		defer close(done)
		s.logger.Info("started", zap.Duration("max_age", s.maxAge), zap.Duration("interval", s.interval))
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.SweepNow()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("stopped")
				return
			case <-ticker.C:
				s.SweepNow()
			}
		}
	}()
	return done
}

// SweepNow runs one retention pass and records it.
func (s *Scheduler) SweepNow() Sweep {
	now := s.now()
	sw := Sweep{At: now, Cutoff: now.Add(-s.maxAge)}

	removed, err := s.prune(sw.Cutoff)
	sw.Removed = removed
	if err != nil {
		sw.Err = err.Error()
		s.logger.Error("sweep failed", zap.Time("cutoff", sw.Cutoff), zap.Error(err))
	} else if removed > 0 {
		s.logger.Info("pruned decks", zap.Int("removed", removed), zap.Time("cutoff", sw.Cutoff))
	}

	s.mu.Lock()
	s.last = sw
	s.mu.Unlock()
	return sw
}

// Last returns the most recent sweep. At is zero before the first one.
func (s *Scheduler) Last() Sweep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
