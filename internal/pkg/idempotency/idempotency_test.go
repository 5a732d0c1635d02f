package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/wapilot/internal/pkg/redistest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis(t *testing.T) {
	client := redistest.New(t)
	tracker := New(client, "test-idem:")
	ctx := context.Background()

	t.Run("RunsOnce", func(t *testing.T) {
		// Arrange
		calls := 0
		fn := func(context.Context) error { calls++; return nil }

		// Act
		first := tracker.Exec(ctx, "exchange:state-1", fn, WithStateTTL(time.Minute))
		second := tracker.Exec(ctx, "exchange:state-1", fn)

		// Assert
		require.NoError(t, first)
		assert.ErrorIs(t, second, ErrAlreadyCompleted)
		assert.Equal(t, 1, calls)
	})

	t.Run("RemembersFailure", func(t *testing.T) {
		// Arrange
		boom := errors.New("boom")

		// Act
		first := tracker.Exec(ctx, "exchange:state-2", func(context.Context) error { return boom })
		second := tracker.Exec(ctx, "exchange:state-2", func(context.Context) error { return nil })

		// Assert
		assert.ErrorIs(t, first, boom)
		assert.ErrorIs(t, second, ErrAlreadyFailed)
	})

	t.Run("InProgress", func(t *testing.T) {
		// Arrange
		state, err := tracker.Acquire(ctx, "exchange:state-3", time.Minute)
		require.NoError(t, err)
		require.Equal(t, StateNone, state)

		// Act
		err = tracker.Exec(ctx, "exchange:state-3", func(context.Context) error { return nil })

		// Assert
		assert.ErrorIs(t, err, ErrAlreadyInProgress)
	})

	t.Run("UnknownStateIsInvalid", func(t *testing.T) {
		// Arrange
		require.NoError(t, client.Set(ctx, "test-idem:exchange:state-4", "garbage", time.Minute).Err())

		// Act
		err := tracker.Exec(ctx, "exchange:state-4", func(context.Context) error { return nil })

		// Assert
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("LockExpires", func(t *testing.T) {
		// Arrange
		state, err := tracker.Acquire(ctx, "exchange:state-5", 50*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, StateNone, state)

		// Act & Assert
		assert.Eventually(t, func() bool {
			return tracker.Exec(ctx, "exchange:state-5", func(context.Context) error { return nil }) == nil
		}, 5*time.Second, 20*time.Millisecond)
	})
}
