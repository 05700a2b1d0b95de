package app

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	"cryptoScalper/internal/ports"
)

// SchedulerConfig controls the pacing of engine cycles.
type SchedulerConfig struct {
	Interval   time.Duration // Wait after a successful cycle
	BackoffMin time.Duration // First wait after a failed cycle
	BackoffMax time.Duration // Upper bound of the failure wait
}

// Scheduler runs a cycle repeatedly, backing off after failures, until its context is done.
type Scheduler struct {
	cfg     SchedulerConfig
	logger  ports.Logger
	backoff *backoff.Backoff
	after   func(time.Duration) <-chan time.Time
}

// NewScheduler creates a cycle scheduler.
func NewScheduler(cfg SchedulerConfig, logger ports.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		logger: logger,
		backoff: &backoff.Backoff{
			Min:    cfg.BackoffMin,
			Max:    cfg.BackoffMax,
			Factor: 2,
			Jitter: false,
		},
		after: time.After,
	}
}

// Run executes cycle until ctx is cancelled. A cycle that has started runs to
// completion on a context that ignores ctx's cancellation.
func (s *Scheduler) Run(ctx context.Context, cycle func(context.Context) error) error {
	op := "SchedulerRun"
	for cycleNo := 1; ctx.Err() == nil; cycleNo++ {
		wait := s.cfg.Interval
		if err := cycle(context.WithoutCancel(ctx)); err != nil {
			wait = s.backoff.Duration()
			s.logger.Error(ctx, err, op+": cycle failed, backing off", map[string]interface{}{
				"cycle":   cycleNo,
				"backoff": wait.String(),
				"attempt": s.backoff.Attempt(),
			})
		} else {
			s.backoff.Reset()
		}

		if wait <= 0 || ctx.Err() != nil {
			continue
		}
		select {
		case <-ctx.Done():
		case <-s.after(wait):
		}
	}
	s.logger.Info(ctx, op+": context done, scheduler stopped")
	return nil
}
