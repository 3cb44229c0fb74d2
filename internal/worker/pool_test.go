package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestPool_RunsJobs(t *testing.T) {
	p := New(4, 16, quietLogger())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, p.Submit("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}

	require.NoError(t, p.Close(context.Background()))
	assert.EqualValues(t, 10, ran.Load())
}

func TestPool_SurvivesPanicAndError(t *testing.T) {
	p := New(1, 8, quietLogger())
	before := testutil.ToFloat64(jobsTotal.WithLabelValues("boom", "panic"))

	var ran atomic.Bool
	p.Submit("boom", func(ctx context.Context) error { panic("kaboom") })
	p.Submit("fail", func(ctx context.Context) error { return errors.New("store down") })
	p.Submit("after", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, ran.Load(), "worker keeps running after a panic")
	assert.Equal(t, before+1, testutil.ToFloat64(jobsTotal.WithLabelValues("boom", "panic")))
}

func TestPool_DropsWhenFull(t *testing.T) {
	p := New(1, 1, quietLogger())

	gate := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.Submit("block", func(ctx context.Context) error {
		close(started)
		<-gate
		return nil
	}))
	<-started

	require.True(t, p.Submit("queued", func(ctx context.Context) error { return nil }))
	assert.False(t, p.Submit("overflow", func(ctx context.Context) error { return nil }))

	close(gate)
	require.NoError(t, p.Close(context.Background()))
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := New(1, 1, quietLogger())
	require.NoError(t, p.Close(context.Background()))

	assert.False(t, p.Submit("late", func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, p.Close(context.Background()), ErrClosed)
}

func TestPool_CloseTimeoutCancelsJobs(t *testing.T) {
	p := New(1, 1, quietLogger())

	started := make(chan struct{})
	var cancelled atomic.Bool
	p.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
	assert.True(t, cancelled.Load())
}
