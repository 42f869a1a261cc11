package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/job"
)

func TestSubmitDeliversResult(t *testing.T) {
	r := job.NewRunner(2)

	h := r.Submit(context.Background(), func(ctx context.Context, report job.Reporter) (any, error) {
		report(50, "halfway")

		return 42, nil
	})

	var progressed []job.Progress
	for p := range h.Progress() {
		progressed = append(progressed, p)
	}

	res := <-h.Result()
	require.NoError(t, res.Err)
	assert.Equal(t, 42, res.Value)
	require.Len(t, progressed, 1)
	assert.InDelta(t, 50.0, progressed[0].Percent, 1e-9)
	assert.True(t, h.Delivered())
}

func TestSubmitPropagatesError(t *testing.T) {
	r := job.NewRunner(1)

	boom := errors.New("boom")

	h := r.Submit(context.Background(), func(ctx context.Context, report job.Reporter) (any, error) {
		return nil, boom
	})

	for range h.Progress() {
	}

	res := <-h.Result()
	require.ErrorIs(t, res.Err, boom)
}

func TestCancelMarksCancelled(t *testing.T) {
	r := job.NewRunner(1)

	started := make(chan struct{})

	h := r.Submit(context.Background(), func(ctx context.Context, report job.Reporter) (any, error) {
		close(started)
		<-ctx.Done()

		return nil, nil
	})

	<-started
	h.Cancel()

	for range h.Progress() {
	}

	res := <-h.Result()
	require.ErrorIs(t, res.Err, fault.ErrCancelled)
}

func TestRunnerReleasesHandleAfterDelivery(t *testing.T) {
	r := job.NewRunner(1)

	h := r.Submit(context.Background(), func(ctx context.Context, report job.Reporter) (any, error) {
		return "done", nil
	})

	<-h.Result()

	require.Eventually(t, func() bool {
		return r.Active() == 0
	}, time.Second, time.Millisecond)

	_, ok := r.Lookup(h.ID)
	assert.False(t, ok)
}

func TestPanicRecoveredAsError(t *testing.T) {
	r := job.NewRunner(1)

	h := r.Submit(context.Background(), func(ctx context.Context, report job.Reporter) (any, error) {
		panic("kaboom")
	})

	for range h.Progress() {
	}

	res := <-h.Result()
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "kaboom")
}
