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
	"kds-display-backend/internal/ref"
)

func TestCandidates_MergesAndDedupes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cache.Put(ctx, 9, model.Queue{ID: ref.Int(70), Queue: "Cached", Company: ref.FromAny("/people/3")})
	h.cache.Put(ctx, 10, model.Queue{ID: ref.Int(71), Queue: "Cached elsewhere", Company: ref.FromAny("/people/4")})
	h.cache.Put(ctx, 11, model.Queue{ID: ref.Int(72), Queue: "Cached unknown company"})
	h.remote.ListQueuesFunc = func(_ context.Context, q url.Values) ([]model.Queue, error) {
		switch q.Get("company") {
		case "/people/3":
			return []model.Queue{{ID: ref.Int(55), Queue: "Grill"}}, nil
		case "3":
			t.Fatal("plain id lookup runs only when the reference lookup is empty")
			return nil, nil
		default:
			return []model.Queue{
				{ID: ref.Int(55)},
				{IRI: "/queues/56", Queue: "Fryer", Company: ref.FromAny("/people/3")},
				{ID: ref.Int(57), Queue: "Bar", Company: ref.FromAny("/people/3")},
				{ID: ref.Int(58), Queue: "Other company", Company: ref.FromAny("/people/4")},
				{ID: ref.Int(59), Queue: "No company"},
			}, nil
		}
	}
	visible := []model.Queue{
		{ID: ref.Int(60), Queue: "Visible", Company: ref.FromAny(map[string]any{"id": json.Number("3")})},
		{ID: ref.Int(62), Queue: "Visible elsewhere", Company: ref.FromAny("/people/4")},
		{Queue: "anonymous", Company: ref.FromAny("/people/3")},
	}
	current := []model.Link{{Queue: model.Queue{ID: ref.Int(61), Queue: "Current"}}}

	queues, err := h.engine.Candidates(ctx, 3, newDisplay(7, model.DisplayOrders), current, visible)
	require.NoError(t, err)

	names := make([]string, len(queues))
	for i, q := range queues {
		names[i] = q.Queue
	}
	assert.Equal(t, []string{"Grill", "Fryer", "Bar", "Visible", "Cached", "Current"}, names)
}

func TestCandidates_CompanyFromDisplay(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Candidates(context.Background(), 0, newDisplay(7, model.DisplayOrders), nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, h.remote.queueQueries)
	assert.Equal(t, "/people/3", h.remote.queueQueries[0].Get("company"))
}

func TestCandidates_AllLookupsFail(t *testing.T) {
	h := newHarness(t)
	h.remote.ListQueuesFunc = func(context.Context, url.Values) ([]model.Queue, error) {
		return nil, errors.New("down")
	}
	_, err := h.engine.Candidates(context.Background(), 3, newDisplay(7, model.DisplayOrders), nil, nil)
	assert.Error(t, err)

	// known queues are still offered
	known := grill()
	known.Company = ref.FromAny("/people/3")
	queues, err := h.engine.Candidates(context.Background(), 3, newDisplay(7, model.DisplayOrders), nil, []model.Queue{known})
	require.NoError(t, err)
	assert.Len(t, queues, 1)
}

func TestCandidates_ByIDWhenReferenceEmpty(t *testing.T) {
	h := newHarness(t)
	h.remote.ListQueuesFunc = func(_ context.Context, q url.Values) ([]model.Queue, error) {
		if q.Get("company") == "3" {
			return []model.Queue{{ID: ref.Int(55), Queue: "Grill"}}, nil
		}
		return nil, nil
	}

	queues, err := h.engine.Candidates(context.Background(), 3, newDisplay(7, model.DisplayOrders), nil, nil)
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, "Grill", queues[0].Queue)
	require.Len(t, h.remote.queueQueries, 3)
	assert.Equal(t, "/people/3", h.remote.queueQueries[0].Get("company"))
	assert.Equal(t, "3", h.remote.queueQueries[1].Get("company"))
}

func TestCandidates_OtherCompaniesBoardAndCacheExcluded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.ListQueuesFunc = func(context.Context, url.Values) ([]model.Queue, error) {
		return nil, nil
	}
	h.cache.Put(ctx, 8, model.Queue{ID: ref.Int(80), Queue: "Co4 cached", Company: ref.FromAny("/people/4")})

	other := model.Display{
		ID:          ref.Int(9),
		DisplayType: model.DisplayOrders,
		Company:     ref.FromAny("/people/4"),
		Embedded: []any{map[string]any{
			"id":      json.Number("901"),
			"display": "/displays/9",
			"queue":   map[string]any{"id": json.Number("90"), "queue": "Co4 visible", "company": "/people/4"},
		}},
	}
	board := NewBoard(h.engine, 1)
	cards := board.Sync(ctx, []model.Display{other}, nil)
	require.Len(t, cards[0].Links(), 1)
	require.NotEmpty(t, board.VisibleQueues(7))

	queues, err := h.engine.Candidates(ctx, 3, newDisplay(7, model.DisplayOrders), nil, board.VisibleQueues(7))
	require.NoError(t, err)
	assert.Empty(t, queues)
}
