package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sweepRecorder struct {
	cutoff      time.Time
	minAttempts int
	deleted     int64
	err         error
}

func (s *sweepRecorder) DeleteStaleBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.deleted, s.err
}

func (s *sweepRecorder) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	s.cutoff = cutoff
	s.minAttempts = minAttempts
	return s.deleted, s.err
}

type inlineTx struct{ calls int }

func (r *inlineTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	r.calls++
	return fn(nil)
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestCartRetentionCutoff(t *testing.T) {
	for _, tc := range []struct {
		days int
		want time.Time
	}{
		{days: 10, want: fixedNow.AddDate(0, 0, -10)},
		{days: 0, want: fixedNow.AddDate(0, 0, -defaultCartRetentionDays)},
	} {
		repo := &sweepRecorder{deleted: 3}
		job, err := NewCartRetentionJob(quietLogger(), repo, tc.days)
		require.NoError(t, err)
		job.now = func() time.Time { return fixedNow }

		require.NoError(t, job.Run(context.Background()))
		require.Equal(t, "cart-retention", job.Name())
		require.True(t, repo.cutoff.Equal(tc.want), "days=%d cutoff=%s", tc.days, repo.cutoff)
	}
}

func TestOutboxRetentionRunsInTransaction(t *testing.T) {
	repo := &sweepRecorder{deleted: 7}
	tx := &inlineTx{}
	job, err := NewOutboxRetentionJob(quietLogger(), tx, repo, 0, 0)
	require.NoError(t, err)
	job.now = func() time.Time { return fixedNow }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, tx.calls)
	require.Equal(t, defaultOutboxMinAttempts, repo.minAttempts)
	require.True(t, repo.cutoff.Equal(fixedNow.AddDate(0, 0, -defaultOutboxRetentionDays)))
}

func TestRetentionErrorsPropagate(t *testing.T) {
	cause := errors.New("statement timeout")
	job, err := NewOutboxRetentionJob(quietLogger(), &inlineTx{}, &sweepRecorder{err: cause}, 30, 10)
	require.NoError(t, err)
	require.ErrorIs(t, job.Run(context.Background()), cause)

	_, err = NewCartRetentionJob(quietLogger(), nil, 30)
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(nil, &inlineTx{}, &sweepRecorder{}, 30, 10)
	require.Error(t, err)
}
