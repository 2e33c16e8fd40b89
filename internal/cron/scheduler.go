package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultInterval = 24 * time.Hour

// JobRecorder receives one observation per job run.
type JobRecorder interface {
	Observe(job string, took time.Duration, err error)
}

// SchedulerParams configure a Scheduler. Logger and Lock are required.
type SchedulerParams struct {
	Logger   *logger.Logger
	Lock     Locker
	Recorder JobRecorder
	Interval time.Duration
	Jobs     []Job
}

// Scheduler runs every job once per interval while holding the cluster lock.
type Scheduler struct {
	logg     *logger.Logger
	lock     Locker
	recorder JobRecorder
	interval time.Duration
	jobs     []Job
}

func NewScheduler(p SchedulerParams) (*Scheduler, error) {
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	if p.Lock == nil {
		return nil, errors.New("lock required")
	}
	if p.Interval <= 0 {
		p.Interval = defaultInterval
	}
	jobs := make([]Job, 0, len(p.Jobs))
	for _, j := range p.Jobs {
		if j != nil {
			jobs = append(jobs, j)
		}
	}
	return &Scheduler{
		logg:     p.Logger,
		lock:     p.Lock,
		recorder: p.Recorder,
		interval: p.Interval,
		jobs:     jobs,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.tick(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick runs all jobs in order. One failing job does not stop the rest.
func (s *Scheduler) tick(ctx context.Context) (errs error) {
	release, held, err := s.lock.TryLock(ctx)
	if err != nil {
		return err
	}
	if !held {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron lock release failed", err)
		}
	}()

	for _, job := range s.jobs {
		if err := s.runOne(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return errs
}

func (s *Scheduler) runOne(ctx context.Context, job Job) (err error) {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		took := time.Since(start)
		if s.recorder != nil {
			s.recorder.Observe(job.Name(), took, err)
		}
		ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
		if err != nil {
			s.logg.Error(ctx, "job failed", err)
			return
		}
		s.logg.Info(ctx, "job finished")
	}()
	return job.Run(ctx)
}
