package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/clock"
)

// Schedules are standard five-field cron specs or descriptors such as
// "@every 1m". An empty spec disables that job.
type Schedules struct {
	Reconcile  string
	Repair     bool
	Expire     string
	CacheSweep string

	// IdempotencyPurge drops idempotency records older than
	// IdempotencyRetention. It needs Idempotency to be set.
	IdempotencyPurge     string
	IdempotencyRetention time.Duration
	Idempotency          Purger

	// Location interprets the specs; nil means the local zone.
	Location *time.Location
}

// Purger deletes records created before cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler runs maintenance jobs on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(svc *Service, c *cache.Store, clk clock.Clock, sch Schedules) (*Scheduler, error) {
	opts := []cron.Option{cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))}
	if sch.Location != nil {
		opts = append(opts, cron.WithLocation(sch.Location))
	}
	cr := cron.New(opts...)
	ctx := context.Background()

	add := func(name, spec string, fn func()) error {
		if spec == "" {
			return nil
		}
		if _, err := cr.AddFunc(spec, fn); err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, spec, err)
		}
		logger.Info(ctx, "job scheduled", "job", name, "spec", spec)
		return nil
	}

	if err := add("reconcile", sch.Reconcile, func() {
		if _, err := svc.Run(ctx, sch.Repair); err != nil {
			logger.Error(ctx, "reconcile job failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}
	if err := add("expire", sch.Expire, func() {
		if _, err := svc.ExpireOverdue(ctx, clk.Now()); err != nil {
			logger.Error(ctx, "expire job failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}
	if err := add("cache-sweep", sch.CacheSweep, func() {
		if n := c.Sweep(); n > 0 {
			logger.Debug(ctx, "cache swept", "evicted", n)
		}
	}); err != nil {
		return nil, err
	}
	if sch.Idempotency != nil && sch.IdempotencyRetention > 0 {
		if err := add("idempotency-purge", sch.IdempotencyPurge, func() {
			n, err := sch.Idempotency.Purge(ctx, clk.Now().Add(-sch.IdempotencyRetention))
			if err != nil {
				logger.Error(ctx, "idempotency purge failed", "error", err)
				return
			}
			if n > 0 {
				logger.Info(ctx, "idempotency records purged", "count", n)
			}
		}); err != nil {
			return nil, err
		}
	}
	return &Scheduler{cron: cr}, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries is the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }
