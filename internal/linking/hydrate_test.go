package linking

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kds-display-backend/internal/model"
)

func TestHydrate_FallsBackToLocalCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cache.Put(ctx, 7, grill())

	got, err := h.engine.Hydrate(ctx, newDisplay(7, model.DisplayOrders), nil)
	require.NoError(t, err)

	assert.Equal(t, SourceLocalCache, got.Source)
	require.Len(t, got.Links, 1)
	assert.Equal(t, "local-7-55", got.Links[0].ID.Text())
	assert.True(t, got.Links[0].IsLocal())
	assert.Equal(t, int64(55), mustQueueID(t, got.Links[0].Queue))
	assert.Equal(t, "Grill", got.Links[0].Queue.Queue)
	id, _ := got.Links[0].Display.ID()
	assert.Equal(t, int64(7), id)

	// every relation filter spelling was tried before giving up
	require.Len(t, h.remote.relationQueries, 4)
	assert.Equal(t, "/displays/7", h.remote.relationQueries[0].Get("display"))
	assert.Equal(t, "7", h.remote.relationQueries[1].Get("display"))
	assert.Equal(t, "7", h.remote.relationQueries[2].Get("display.id"))
	assert.Empty(t, h.remote.relationQueries[3])
}

func TestHydrate_PriorityOrder(t *testing.T) {
	ctx := context.Background()
	relationRow := map[string]any{"id": json.Number("300"), "display": "/displays/7", "queue": "/queues/60"}

	t.Run("prefetched wins", func(t *testing.T) {
		h := newHarness(t)
		h.remote.ListDisplayQueuesFunc = func(context.Context, url.Values) ([]any, error) {
			return []any{relationRow}, nil
		}
		d := newDisplay(7, model.DisplayOrders)
		d.Embedded = []any{map[string]any{"id": json.Number("1"), "queue": map[string]any{"id": json.Number("61")}}}
		prefetched := []any{map[string]any{"id": json.Number("2"), "queue": map[string]any{"id": json.Number("62")}}}

		got, err := h.engine.Hydrate(ctx, d, prefetched)
		require.NoError(t, err)
		assert.Equal(t, SourcePrefetched, got.Source)
		assert.Equal(t, int64(62), mustQueueID(t, got.Links[0].Queue))
		assert.Empty(t, h.remote.relationQueries)
	})

	t.Run("embedded filtered by display", func(t *testing.T) {
		h := newHarness(t)
		d := newDisplay(7, model.DisplayOrders)
		d.Embedded = []any{
			map[string]any{"id": json.Number("1"), "display": "/displays/9", "queue": map[string]any{"id": json.Number("61")}},
			map[string]any{"id": json.Number("2"), "display": "/displays/7", "queue": map[string]any{"id": json.Number("63")}},
		}
		got, err := h.engine.Hydrate(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, SourceEmbedded, got.Source)
		require.Len(t, got.Links, 1)
		assert.Equal(t, int64(63), mustQueueID(t, got.Links[0].Queue))
		assert.Empty(t, h.remote.relationQueries)
	})

	t.Run("remote before cache", func(t *testing.T) {
		h := newHarness(t)
		h.cache.Put(ctx, 7, grill())
		h.remote.ListDisplayQueuesFunc = func(context.Context, url.Values) ([]any, error) {
			return []any{relationRow}, nil
		}
		got, err := h.engine.Hydrate(ctx, newDisplay(7, model.DisplayOrders), nil)
		require.NoError(t, err)
		assert.Equal(t, SourceRemote, got.Source)
		assert.Equal(t, int64(60), mustQueueID(t, got.Links[0].Queue))
		assert.Len(t, h.remote.relationQueries, 1)
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		h := newHarness(t)
		got, err := h.engine.Hydrate(ctx, newDisplay(7, model.DisplayOrders), nil)
		require.NoError(t, err)
		assert.Equal(t, SourceNone, got.Source)
		assert.NotNil(t, got.Links)
		assert.Empty(t, got.Links)
	})
}

func TestHydrate_RelationFallbacks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.remote.ListDisplayQueuesFunc = func(_ context.Context, q url.Values) ([]any, error) {
		switch {
		case q.Get("display") == "/displays/7":
			return nil, errors.New("filter not supported")
		case q.Get("display") == "7":
			// a server that ignores the filter answers with another display's rows
			return []any{map[string]any{"id": json.Number("1"), "display": "/displays/8", "queue": "/queues/70"}}, nil
		case q.Get("display.id") == "7":
			return []any{}, nil
		default:
			return []any{
				map[string]any{"id": json.Number("1"), "display": "/displays/8", "queue": "/queues/70"},
				map[string]any{"id": json.Number("2"), "display": "/displays/7", "queue": "/queues/71"},
				map[string]any{"id": json.Number("3"), "queue": "/queues/72"},
			}, nil
		}
	}

	got, err := h.engine.Hydrate(ctx, newDisplay(7, model.DisplayOrders), nil)
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, got.Source)
	require.Len(t, got.Links, 1)
	assert.Equal(t, int64(71), mustQueueID(t, got.Links[0].Queue))
}

func TestHydrate_RemoteErrorFallsThroughToCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.cache.Put(ctx, 7, grill())
	h.remote.ListDisplayQueuesFunc = func(context.Context, url.Values) ([]any, error) {
		return nil, errors.New("boom")
	}
	got, err := h.engine.Hydrate(ctx, newDisplay(7, model.DisplayOrders), nil)
	require.NoError(t, err)
	assert.Equal(t, SourceLocalCache, got.Source)
}

func TestHydrate_ProductsDisplayKeepsOneLink(t *testing.T) {
	h := newHarness(t)
	prefetched := []any{
		map[string]any{"id": json.Number("1"), "queue": map[string]any{"id": json.Number("55")}},
		map[string]any{"id": json.Number("2"), "queue": map[string]any{"id": json.Number("56")}},
	}
	got, err := h.engine.Hydrate(context.Background(), newDisplay(7, model.DisplayProducts), prefetched)
	require.NoError(t, err)
	require.Len(t, got.Links, 1)
	assert.Equal(t, int64(55), mustQueueID(t, got.Links[0].Queue))

	got, err = h.engine.Hydrate(context.Background(), newDisplay(7, model.DisplayOrders), prefetched)
	require.NoError(t, err)
	assert.Len(t, got.Links, 2)
}

func TestHydrate_Cancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.remote.ListDisplayQueuesFunc = func(ctx context.Context, _ url.Values) ([]any, error) {
		cancel()
		return nil, ctx.Err()
	}
	_, err := h.engine.Hydrate(ctx, newDisplay(7, model.DisplayOrders), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, h.remote.relationQueries, 1)
}

func TestHydrate_DisplayWithoutID(t *testing.T) {
	h := newHarness(t)
	got, err := h.engine.Hydrate(context.Background(), model.Display{Display: "draft"}, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, got.Source)
	assert.Empty(t, h.remote.relationQueries)
}
