package scheduler

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchartifacts/aestats/internal/logger"
)

func TestMain(m *testing.M) {
	logger.UseTestMode()
	os.Exit(m.Run())
}

func TestParse(t *testing.T) {
	assert.NoError(t, Parse("0 3 * * *"))
	assert.NoError(t, Parse("@daily"))
	assert.NoError(t, Parse("@every 6h"))
	assert.Error(t, Parse("not a cron spec"))
	assert.Error(t, Parse("* * * * * *"), "six fields need the seconds parser we do not enable")
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("nope", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRunOnce_SkipsOverlap(t *testing.T) {
	var calls atomic.Int32
	s, err := New("@daily", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	s.running.Store(true)
	s.runOnce(context.Background())
	assert.Zero(t, calls.Load(), "a busy scheduler drops the trigger")

	s.running.Store(false)
	s.runOnce(context.Background())
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunOnce_JobErrorDoesNotPanic(t *testing.T) {
	s, err := New("@daily", func(context.Context) error {
		return errors.New("boom")
	})
	require.NoError(t, err)

	s.runOnce(context.Background())
	assert.False(t, s.running.Load(), "the running flag is released after a failure")
}

func TestRun_FiresAndStops(t *testing.T) {
	var calls atomic.Int32
	s, err := New("@every 10ms", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 },
		3*time.Second, 10*time.Millisecond, "the job fires on schedule")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
