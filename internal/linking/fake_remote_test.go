package linking

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"kds-display-backend/internal/linkcache"
	"kds-display-backend/internal/model"
	"kds-display-backend/internal/remote"
	"kds-display-backend/internal/store"
)

// fakeRemote records calls and answers through overridable funcs.
type fakeRemote struct {
	mu sync.Mutex

	relationQueries []url.Values
	linkInputs      []remote.LinkInput
	deletedLinks    []int64
	queueQueries    []url.Values
	queueInputs     []remote.QueueInput
	productRoutes   map[int64]*string

	ListDisplayQueuesFunc  func(ctx context.Context, query url.Values) ([]any, error)
	CreateDisplayQueueFunc func(ctx context.Context, in remote.LinkInput) (any, error)
	DeleteDisplayQueueFunc func(ctx context.Context, id int64) error
	ListQueuesFunc         func(ctx context.Context, query url.Values) ([]model.Queue, error)
	CreateQueueFunc        func(ctx context.Context, in remote.QueueInput) (model.Queue, error)
	ListStatusesFunc       func(ctx context.Context, query url.Values) ([]model.Status, error)
	ListDisplaysFunc       func(ctx context.Context, query url.Values) ([]model.Display, error)
	GetDisplayFunc         func(ctx context.Context, id int64) (model.Display, error)
	SaveDisplayFunc        func(ctx context.Context, in remote.DisplayInput) (model.Display, error)
	DeleteDisplayFunc      func(ctx context.Context, id int64) error
	ListProductsFunc       func(ctx context.Context, query url.Values) ([]model.Product, error)
}

func (f *fakeRemote) ListDisplayQueues(ctx context.Context, query url.Values) ([]any, error) {
	f.mu.Lock()
	f.relationQueries = append(f.relationQueries, query)
	f.mu.Unlock()
	if f.ListDisplayQueuesFunc == nil {
		return nil, nil
	}
	return f.ListDisplayQueuesFunc(ctx, query)
}

func (f *fakeRemote) CreateDisplayQueue(ctx context.Context, in remote.LinkInput) (any, error) {
	f.mu.Lock()
	f.linkInputs = append(f.linkInputs, in)
	f.mu.Unlock()
	if f.CreateDisplayQueueFunc == nil {
		return nil, nil
	}
	return f.CreateDisplayQueueFunc(ctx, in)
}

func (f *fakeRemote) DeleteDisplayQueue(ctx context.Context, id int64) error {
	f.mu.Lock()
	f.deletedLinks = append(f.deletedLinks, id)
	f.mu.Unlock()
	if f.DeleteDisplayQueueFunc == nil {
		return nil
	}
	return f.DeleteDisplayQueueFunc(ctx, id)
}

func (f *fakeRemote) ListQueues(ctx context.Context, query url.Values) ([]model.Queue, error) {
	f.mu.Lock()
	f.queueQueries = append(f.queueQueries, query)
	f.mu.Unlock()
	if f.ListQueuesFunc == nil {
		return nil, nil
	}
	return f.ListQueuesFunc(ctx, query)
}

func (f *fakeRemote) CreateQueue(ctx context.Context, in remote.QueueInput) (model.Queue, error) {
	f.mu.Lock()
	f.queueInputs = append(f.queueInputs, in)
	f.mu.Unlock()
	if f.CreateQueueFunc == nil {
		return model.Queue{}, nil
	}
	return f.CreateQueueFunc(ctx, in)
}

func (f *fakeRemote) ListStatuses(ctx context.Context, query url.Values) ([]model.Status, error) {
	if f.ListStatusesFunc == nil {
		return nil, nil
	}
	return f.ListStatusesFunc(ctx, query)
}

func (f *fakeRemote) ListDisplays(ctx context.Context, query url.Values) ([]model.Display, error) {
	if f.ListDisplaysFunc == nil {
		return nil, nil
	}
	return f.ListDisplaysFunc(ctx, query)
}

func (f *fakeRemote) GetDisplay(ctx context.Context, id int64) (model.Display, error) {
	if f.GetDisplayFunc == nil {
		return model.Display{}, &remote.Error{StatusCode: 404}
	}
	return f.GetDisplayFunc(ctx, id)
}

func (f *fakeRemote) SaveDisplay(ctx context.Context, in remote.DisplayInput) (model.Display, error) {
	if f.SaveDisplayFunc == nil {
		return model.Display{}, nil
	}
	return f.SaveDisplayFunc(ctx, in)
}

func (f *fakeRemote) DeleteDisplay(ctx context.Context, id int64) error {
	if f.DeleteDisplayFunc == nil {
		return nil
	}
	return f.DeleteDisplayFunc(ctx, id)
}

func (f *fakeRemote) ListProducts(ctx context.Context, query url.Values) ([]model.Product, error) {
	if f.ListProductsFunc == nil {
		return nil, nil
	}
	return f.ListProductsFunc(ctx, query)
}

func (f *fakeRemote) SetProductQueue(_ context.Context, productID int64, queue *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productRoutes == nil {
		f.productRoutes = make(map[int64]*string)
	}
	f.productRoutes[productID] = queue
	return nil
}

// countingNotifier counts change notifications per display.
type countingNotifier struct {
	mu    sync.Mutex
	calls map[int64]int
}

func (n *countingNotifier) DisplayChanged(_ context.Context, displayID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = make(map[int64]int)
	}
	n.calls[displayID]++
}

func (n *countingNotifier) count(displayID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[displayID]
}

type harness struct {
	remote   *fakeRemote
	cache    *linkcache.Cache
	notifier *countingNotifier
	engine   *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		remote:   &fakeRemote{},
		cache:    linkcache.New(store.NewMemoryKV(nil)),
		notifier: &countingNotifier{},
	}
	h.engine = NewEngine(h.remote, h.cache, h.notifier)
	h.engine.Retry.Delay = 0
	return h
}

func newDisplay(id int64, displayType model.DisplayType) model.Display {
	return model.DisplayFromMap(map[string]any{
		"id":          id,
		"display":     "Kitchen",
		"displayType": string(displayType),
		"company":     "/people/3",
	})
}

func grill() model.Queue {
	q, _ := model.QueueFrom(map[string]any{"id": int64(55), "queue": "Grill"})
	return q
}

func mustQueueID(t *testing.T, q model.Queue) int64 {
	t.Helper()
	id, ok := queueID(q)
	require.True(t, ok, "queue has no identity")
	return id
}
