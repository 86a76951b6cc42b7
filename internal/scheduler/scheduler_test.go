package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yearly = "0 0 1 1 *"

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestScheduler_RunOnStartAndRunNow(t *testing.T) {
	s := newTestScheduler(t)
	var runs atomic.Int32

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:         "warm",
		Name:       "Warm",
		Cron:       yearly,
		RunOnStart: true,
		Func: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.RunNow("warm"))
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		info, err := s.GetTask("warm")
		return err == nil && info.Runs == 2 && !info.Running
	}, time.Second, 5*time.Millisecond)

	info, err := s.GetTask("warm")
	require.NoError(t, err)
	assert.NotNil(t, info.LastRun)
	assert.NotNil(t, info.NextRun)
	assert.Empty(t, info.LastError)
}

func TestScheduler_RecordsFailures(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:   "broken",
		Cron: yearly,
		Func: func(context.Context) error { return errors.New("provider unavailable") },
	}))
	s.Start(context.Background())

	require.NoError(t, s.RunNow("broken"))
	require.Eventually(t, func() bool {
		info, _ := s.GetTask("broken")
		return info.LastError == "provider unavailable"
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_TimeoutCancelsRun(t *testing.T) {
	s := newTestScheduler(t)
	done := make(chan error, 1)
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:      "slow",
		Cron:    yearly,
		Timeout: 20 * time.Millisecond,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			done <- ctx.Err()
			return ctx.Err()
		},
	}))
	s.Start(context.Background())
	require.NoError(t, s.RunNow("slow"))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled")
	}
}

func TestScheduler_Errors(t *testing.T) {
	s := newTestScheduler(t)
	s.Start(context.Background())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "a", Cron: yearly, Func: noop}))
	assert.ErrorIs(t, s.RegisterTask(TaskConfig{ID: "a", Cron: yearly, Func: noop}), ErrDuplicateTask)
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "b", Cron: "not a cron", Func: noop}))
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "c", Cron: yearly}))

	assert.ErrorIs(t, s.RunNow("missing"), ErrTaskNotFound)
	_, err := s.GetTask("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "0-first", Cron: yearly, Func: noop}))
	list := s.ListTasks()
	require.Len(t, list, 2)
	assert.Equal(t, "0-first", list[0].ID)
}
