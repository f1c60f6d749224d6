package wait

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/extharness/internal/failure"
)

func TestForReturnsWhenConditionHolds(t *testing.T) {
	var calls atomic.Int32
	err := For(context.Background(), "third poll", Options{Timeout: 2 * time.Second, Interval: 10 * time.Millisecond},
		func(ctx context.Context) (bool, error) {
			return calls.Add(1) >= 3, nil
		})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestForTimesOutInsteadOfHanging(t *testing.T) {
	start := time.Now()
	err := For(context.Background(), "never", Options{Timeout: 100 * time.Millisecond, Interval: 10 * time.Millisecond},
		func(ctx context.Context) (bool, error) { return false, nil })

	require.ErrorIs(t, err, failure.ErrTimeout)
	assert.Contains(t, err.Error(), "never")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestForPropagatesConditionError(t *testing.T) {
	boom := errors.New("boom")
	err := For(context.Background(), "x", Options{Timeout: time.Second},
		func(ctx context.Context) (bool, error) { return false, boom })
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, failure.ErrTimeout)
}

func TestForTreatsDeadlineInsideConditionAsTimeout(t *testing.T) {
	err := For(context.Background(), "slow", Options{Timeout: 50 * time.Millisecond, Interval: 10 * time.Millisecond},
		func(ctx context.Context) (bool, error) {
			<-ctx.Done()
			return false, ctx.Err()
		})
	require.ErrorIs(t, err, failure.ErrTimeout)
}

func TestForCallerCancellationIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := For(ctx, "x", Options{Timeout: time.Second}, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, failure.ErrTimeout)
}

func TestForRejectsZeroTimeout(t *testing.T) {
	err := For(context.Background(), "x", Options{}, func(ctx context.Context) (bool, error) { return true, nil })
	require.Error(t, err)
}

func TestDo(t *testing.T) {
	err := Do(context.Background(), "quick", time.Second, func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	err = Do(context.Background(), "stuck", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, failure.ErrTimeout)

	boom := errors.New("boom")
	err = Do(context.Background(), "fails", time.Second, func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, failure.KindUnknown, failure.KindOf(err))
}
