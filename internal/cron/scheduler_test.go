package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type stubLocker struct {
	busy     bool
	released int
}

func (l *stubLocker) TryLock(context.Context) (func(context.Context) error, bool, error) {
	if l.busy {
		return nil, false, nil
	}
	return func(context.Context) error { l.released++; return nil }, true, nil
}

type countingJob struct {
	name  string
	err   error
	panic bool
	runs  int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	if j.panic {
		panic("nil map")
	}
	return j.err
}

type recordedRun struct {
	job    string
	failed bool
}

type stubRecorder struct{ runs []recordedRun }

func (r *stubRecorder) Observe(job string, _ time.Duration, err error) {
	r.runs = append(r.runs, recordedRun{job: job, failed: err != nil})
}

func TestTickRunsEveryJobAndJoinsFailures(t *testing.T) {
	ok := &countingJob{name: "cart-retention"}
	bad := &countingJob{name: "outbox-retention", err: errors.New("deadlock")}
	boom := &countingJob{name: "explodes", panic: true}
	lock := &stubLocker{}
	rec := &stubRecorder{}

	s, err := NewScheduler(SchedulerParams{Logger: quietLogger(), Lock: lock, Recorder: rec, Jobs: []Job{ok, nil, bad, boom}})
	require.NoError(t, err)

	err = s.tick(context.Background())
	require.ErrorContains(t, err, "outbox-retention: deadlock")
	require.ErrorContains(t, err, "explodes: panic: nil map")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, bad.runs)
	require.Equal(t, 1, lock.released)
	require.Equal(t, []recordedRun{
		{job: "cart-retention"},
		{job: "outbox-retention", failed: true},
		{job: "explodes", failed: true},
	}, rec.runs)
}

func TestTickSkipsWhenLockBusy(t *testing.T) {
	job := &countingJob{name: "cart-retention"}
	s, err := NewScheduler(SchedulerParams{Logger: quietLogger(), Lock: &stubLocker{busy: true}, Jobs: []Job{job}})
	require.NoError(t, err)

	require.NoError(t, s.tick(context.Background()))
	require.Zero(t, job.runs)
}

func TestRunStopsWithContext(t *testing.T) {
	job := &countingJob{name: "cart-retention"}
	s, err := NewScheduler(SchedulerParams{Logger: quietLogger(), Lock: &stubLocker{}, Interval: time.Hour, Jobs: []Job{job}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	require.Equal(t, 1, job.runs)
}

func TestNewSchedulerValidates(t *testing.T) {
	_, err := NewScheduler(SchedulerParams{Lock: &stubLocker{}})
	require.Error(t, err)
	_, err = NewScheduler(SchedulerParams{Logger: quietLogger()})
	require.Error(t, err)

	s, err := NewScheduler(SchedulerParams{Logger: quietLogger(), Lock: &stubLocker{}})
	require.NoError(t, err)
	require.Equal(t, defaultInterval, s.interval)
}
