package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/metrics"
)

type stubLock struct {
	acquired bool
	acquires int
	releases int
	err      error
}

func (l *stubLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	return l.acquired, l.err
}

func (l *stubLock) Release(context.Context) error {
	l.releases++
	return nil
}

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func cronTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunCycleExecutesJobsWhenLocked(t *testing.T) {
	lock := &stubLock{acquired: true}
	good := &stubJob{name: "good"}
	bad := &stubJob{name: "bad", err: errors.New("boom")}

	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(good, bad),
		Lock:     lock,
		Interval: time.Minute,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Equal(t, 1, good.runs)
	require.Equal(t, 1, bad.runs, "a failing job must not stop the cycle")
	require.Equal(t, 1, lock.releases)
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	lock := &stubLock{acquired: false}
	job := &stubJob{name: "job"}

	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
		Interval: time.Minute,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Equal(t, 0, job.runs)
	require.Equal(t, 0, lock.releases, "no lock, no release")
}

func TestRunCycleSurfacesLockErrors(t *testing.T) {
	lock := &stubLock{err: errors.New("redis down")}

	svc, err := NewService(ServiceParams{
		Logger: cronTestLogger(),
		Lock:   lock,
	})
	require.NoError(t, err)

	require.Error(t, svc.runCycle(context.Background()))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	lock := &stubLock{acquired: true}
	job := &stubJob{name: "job"}

	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(nil),
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = svc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// The immediate first cycle still ran before the loop observed the cancel.
	require.Equal(t, 1, job.runs)
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &stubLock{}})
	require.Error(t, err)

	_, err = NewService(ServiceParams{Logger: cronTestLogger()})
	require.Error(t, err)
}
