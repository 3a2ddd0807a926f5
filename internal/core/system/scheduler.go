package system

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives a Runner at a fixed period on the calling goroutine.
// Ticks never overlap: a slow tick delays the next one, and the ticker
// drops the intervals it missed.
type Scheduler struct {
	runner *Runner
	period time.Duration
	log    *zap.Logger
	ticks  uint64
	now    func() time.Time
}

func NewScheduler(runner *Runner, period time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{runner: runner, period: period, log: log, now: time.Now}
}

// Run ticks until ctx is cancelled, then returns ctx's error.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Step()
		case <-ctx.Done():
			s.log.Info("scheduler stopped", zap.Uint64("ticks", s.ticks))
			return ctx.Err()
		}
	}
}

// Step runs exactly one tick.
func (s *Scheduler) Step() {
	start := s.now()
	s.runner.Tick(s.period)
	s.ticks++
	if took := s.now().Sub(start); took > s.period {
		s.log.Warn("tick overran period",
			zap.Uint64("tick", s.ticks),
			zap.Duration("took", took),
			zap.Duration("period", s.period),
		)
	}
}

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}
