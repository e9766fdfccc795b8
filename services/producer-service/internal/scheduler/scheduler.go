// Package scheduler drives the producer pipelines on a fixed delay.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/datasync/libs/lockx"
	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/metrics"
)

type Job interface {
	Name() string
	Produce(ctx context.Context) error
}

// Lease guards a tick across replicas. *lockx.Lease satisfies it.
type Lease interface {
	Acquire(ctx context.Context) (*lockx.Lock, bool, error)
	Release(ctx context.Context, lock *lockx.Lock) error
}

type Config struct {
	// FixedDelay is measured from the end of one tick to the start of the next.
	FixedDelay   time.Duration
	InitialDelay time.Duration
	Lease        Lease
}

type Scheduler struct {
	jobs         []Job
	logger       *slog.Logger
	fixedDelay   time.Duration
	initialDelay time.Duration
	lease        Lease
}

func New(logger *slog.Logger, cfg Config, jobs ...Job) (*Scheduler, error) {
	if cfg.FixedDelay <= 0 {
		return nil, errors.New("scheduler fixed delay must be > 0")
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	return &Scheduler{
		jobs:         jobs,
		logger:       logger,
		fixedDelay:   cfg.FixedDelay,
		initialDelay: cfg.InitialDelay,
		lease:        cfg.Lease,
	}, nil
}

// Run blocks until ctx is cancelled. Ticks never overlap: the next countdown
// starts only after every job of the current tick has returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "fixed_delay", s.fixedDelay.String(), "initial_delay", s.initialDelay.String())
	defer s.logger.Info("scheduler stopped")

	if !wait(ctx, s.initialDelay) {
		return
	}
	for {
		s.Tick(ctx)
		if !wait(ctx, s.fixedDelay) {
			return
		}
	}
}

// Tick runs every job once, in order. Job errors are logged here and never
// stop the following job or the next tick.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()

	if s.lease != nil {
		lock, ok, err := s.lease.Acquire(ctx)
		if err != nil {
			s.logger.Error("tick lease acquire failed, skipping tick", "err", err)
			metrics.ObserveTick(0, metrics.OutcomeSkipped)
			return
		}
		if !ok {
			s.logger.Info("tick lease held by another replica, skipping tick")
			metrics.ObserveTick(0, metrics.OutcomeSkipped)
			return
		}
		defer s.release(ctx, lock)
	}

	outcome := metrics.OutcomeOK
	for _, job := range s.jobs {
		if err := s.runJob(ctx, job); err != nil {
			outcome = metrics.OutcomeFailed
			s.logger.Error("pipeline run failed", "pipeline", job.Name(), "err", err)
		}
	}

	elapsed := time.Since(start)
	metrics.ObserveTick(elapsed, outcome)
	s.logger.Debug("tick complete", "duration_ms", elapsed.Milliseconds(), "outcome", outcome)
}

func (s *Scheduler) runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Produce(ctx)
}

func (s *Scheduler) release(ctx context.Context, lock *lockx.Lock) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.lease.Release(releaseCtx, lock); err != nil {
		s.logger.Warn("tick lease release failed", "err", err)
	}
}

// wait reports false if ctx ends first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
