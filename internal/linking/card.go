package linking

import (
	"context"
	"sync"
	"sync/atomic"

	"kds-display-backend/internal/model"
	"kds-display-backend/internal/ref"
)

// Card holds the link state of one mounted display. Hydrations may be
// cancelled and superseded; link, unlink and create are serialized and,
// once started, complete even if the card is unmounted.
type Card struct {
	engine *Engine

	mu         sync.Mutex
	display    model.Display
	prefetched []any
	links      []model.Link
	source     Source
	generation uint64
	cancel     context.CancelFunc
	mounted    bool

	busy atomic.Bool
}

// NewCard creates an unmounted card.
func NewCard(engine *Engine, display model.Display, prefetched []any) *Card {
	return &Card{
		engine:     engine,
		display:    display,
		prefetched: prefetched,
		links:      []model.Link{},
		source:     SourceNone,
	}
}

// Mount marks the card live and hydrates it.
func (c *Card) Mount(ctx context.Context) error {
	c.mu.Lock()
	c.mounted = true
	c.mu.Unlock()
	return c.Hydrate(ctx)
}

// Update replaces the display and prefetched rows and re-hydrates.
func (c *Card) Update(ctx context.Context, display model.Display, prefetched []any) error {
	c.mu.Lock()
	c.display = display
	c.prefetched = prefetched
	c.mu.Unlock()
	return c.Hydrate(ctx)
}

// Hydrate re-resolves the card's links. A hydration started later, or an
// unmount, discards this one's result with ErrHydrationSuperseded.
func (c *Card) Hydrate(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	generation := c.generation
	hctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	display, prefetched := c.display, c.prefetched
	c.mu.Unlock()

	h, err := c.engine.Hydrate(hctx, display, prefetched)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()
	if generation != c.generation || !c.mounted {
		return ErrHydrationSuperseded
	}
	c.cancel = nil
	if err != nil {
		return err
	}
	c.links = h.Links
	c.source = h.Source
	return nil
}

// Unmount cancels any in-flight hydration and drops its result.
func (c *Card) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Mounted reports whether the card is live.
func (c *Card) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Display returns the card's display.
func (c *Card) Display() model.Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Links returns a copy of the card's current links.
func (c *Card) Links() []model.Link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Link(nil), c.links...)
}

// Source returns where the current links came from.
func (c *Card) Source() Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// State returns the card's link state.
func (c *Card) State() State {
	return StateOf(c.Links())
}

func (c *Card) snapshot() (model.Display, []model.Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display, append([]model.Link(nil), c.links...)
}

// setLinks records the result of a mutation. Prefetched and embedded rows
// predate it, so they are dropped.
func (c *Card) setLinks(links []model.Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links = links
	c.prefetched = nil
	c.display.Embedded = nil
}

func (c *Card) acquire() bool {
	return c.busy.CompareAndSwap(false, true)
}

func (c *Card) release() {
	c.busy.Store(false)
}

// Busy reports whether a mutation is running.
func (c *Card) Busy() bool {
	return c.busy.Load()
}

// Link links a queue to the card's display.
func (c *Card) Link(ctx context.Context, queue model.Queue) (Outcome, error) {
	if !c.acquire() {
		return Outcome{}, ErrBusy
	}
	defer c.release()

	display, links := c.snapshot()
	out, err := c.engine.Link(ctx, display, links, queue)
	if err != nil {
		return Outcome{}, err
	}
	if out.Action == ActionCreate {
		c.setLinks(out.Links)
	}
	return out, nil
}

// CreateQueueAndBind creates a queue and links it to the card's display.
func (c *Card) CreateQueueAndBind(ctx context.Context, companyID int64, name string) (Outcome, error) {
	if !c.acquire() {
		return Outcome{}, ErrBusy
	}
	defer c.release()

	display, links := c.snapshot()
	out, err := c.engine.CreateQueueAndBind(ctx, companyID, display, links, name)
	if err != nil {
		return Outcome{}, err
	}
	if out.Action == ActionCreate {
		c.setLinks(out.Links)
	}
	return out, nil
}

// Unlink removes the link to queueID, or the first link when queueID is zero.
func (c *Card) Unlink(ctx context.Context, queueID int64) (UnlinkResult, error) {
	if !c.acquire() {
		return UnlinkResult{}, ErrBusy
	}
	defer c.release()

	display, links := c.snapshot()
	target := targetFor(links, queueID)
	res, err := c.engine.Unlink(ctx, display, links, target)
	if err != nil {
		return UnlinkResult{}, err
	}
	c.setLinks(res.Links)
	return res, nil
}

func targetFor(links []model.Link, qid int64) model.Link {
	if qid <= 0 {
		if len(links) > 0 {
			return links[0]
		}
		return model.Link{}
	}
	for _, l := range links {
		if id, ok := queueID(l.Queue); ok && id == qid {
			return l
		}
	}
	return model.Link{Queue: model.Queue{ID: ref.Int(qid)}}
}

// Candidates lists the queues this display may be linked to.
func (c *Card) Candidates(ctx context.Context, companyID int64, visible []model.Queue) ([]model.Queue, error) {
	display, links := c.snapshot()
	return c.engine.Candidates(ctx, companyID, display, links, visible)
}
