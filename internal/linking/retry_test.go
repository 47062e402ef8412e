package linking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kds-display-backend/internal/model"
	"kds-display-backend/internal/ref"
)

func TestRetryPolicy_Confirm(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	t.Run("found on a later attempt", func(t *testing.T) {
		calls := 0
		q, attempts, err := p.Confirm(context.Background(), "Grill", func(_ context.Context, attempt int) ([]model.Queue, error) {
			calls++
			if attempt == 1 {
				return nil, errors.New("flaky")
			}
			return []model.Queue{{ID: ref.Int(91), Queue: "GRILL"}}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, 2, calls)
		assert.Equal(t, int64(91), mustQueueID(t, q))
	})

	t.Run("ignores matches without an id", func(t *testing.T) {
		_, attempts, err := p.Confirm(context.Background(), "Grill", func(context.Context, int) ([]model.Queue, error) {
			return []model.Queue{{Queue: "Grill"}}, nil
		})
		assert.ErrorIs(t, err, ErrQueueNotConfirmed)
		assert.Equal(t, 3, attempts)
	})

	t.Run("custom matcher", func(t *testing.T) {
		prefix := p
		prefix.Match = func(q model.Queue, name string) bool { return len(q.Queue) >= len(name) && q.Queue[:len(name)] == name }
		q, _, err := prefix.Confirm(context.Background(), "Gri", func(context.Context, int) ([]model.Queue, error) {
			return []model.Queue{{ID: ref.Int(4), Queue: "Grill"}, {ID: ref.Int(9), Queue: "Grind"}}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(9), mustQueueID(t, q))
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		slow := RetryPolicy{MaxAttempts: 3, Delay: time.Hour}
		ctx, cancel := context.WithCancel(context.Background())
		_, _, err := slow.Confirm(ctx, "Grill", func(context.Context, int) ([]model.Queue, error) {
			cancel()
			return nil, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
