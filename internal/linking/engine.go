// Package linking decides which queues a display is linked to and performs
// link, unlink and queue creation against an eventually consistent API.
package linking

import (
	"context"
	"net/url"

	"kds-display-backend/internal/linkcache"
	"kds-display-backend/internal/model"
	"kds-display-backend/internal/remote"
)

// Remote is the subset of the order-management API the engine consumes.
type Remote interface {
	ListDisplayQueues(ctx context.Context, query url.Values) ([]any, error)
	CreateDisplayQueue(ctx context.Context, in remote.LinkInput) (any, error)
	DeleteDisplayQueue(ctx context.Context, id int64) error
	ListQueues(ctx context.Context, query url.Values) ([]model.Queue, error)
	CreateQueue(ctx context.Context, in remote.QueueInput) (model.Queue, error)
	ListStatuses(ctx context.Context, query url.Values) ([]model.Status, error)
	ListDisplays(ctx context.Context, query url.Values) ([]model.Display, error)
	GetDisplay(ctx context.Context, id int64) (model.Display, error)
	SaveDisplay(ctx context.Context, in remote.DisplayInput) (model.Display, error)
	DeleteDisplay(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, query url.Values) ([]model.Product, error)
	SetProductQueue(ctx context.Context, productID int64, queue *string) error
}

// Notifier is told when a display's links changed so that whoever renders
// the display list can refresh it.
type Notifier interface {
	DisplayChanged(ctx context.Context, displayID int64)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, displayID int64)

func (f NotifierFunc) DisplayChanged(ctx context.Context, displayID int64) {
	f(ctx, displayID)
}

// Notifiers fans a change out to several notifiers in order.
type Notifiers []Notifier

func (n Notifiers) DisplayChanged(ctx context.Context, displayID int64) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.DisplayChanged(ctx, displayID)
		}
	}
}

// Engine implements hydration, linking and unlinking.
type Engine struct {
	remote   Remote
	cache    *linkcache.Cache
	notifier Notifier

	// Retry governs confirmation of queues created without an id.
	Retry RetryPolicy
}

// NewEngine creates an engine. notifier may be nil.
func NewEngine(r Remote, cache *linkcache.Cache, notifier Notifier) *Engine {
	return &Engine{
		remote:   r,
		cache:    cache,
		notifier: notifier,
		Retry:    DefaultRetryPolicy(),
	}
}

func (e *Engine) notify(ctx context.Context, displayID int64) {
	if e.notifier != nil {
		e.notifier.DisplayChanged(ctx, displayID)
	}
}
