package linking

import (
	"context"
	"errors"
	"log"
	"sync"

	"kds-display-backend/internal/model"
)

// Board holds the mounted cards of the displays being managed and hydrates
// them concurrently with a fixed number of workers.
type Board struct {
	engine  *Engine
	workers int

	mu    sync.RWMutex
	cards map[int64]*Card
}

// NewBoard creates an empty board.
func NewBoard(engine *Engine, workers int) *Board {
	if workers <= 0 {
		workers = 1
	}
	return &Board{
		engine:  engine,
		workers: workers,
		cards:   make(map[int64]*Card),
	}
}

// Engine returns the board's engine.
func (b *Board) Engine() *Engine {
	return b.engine
}

// Sync mounts a card per display, reusing mounted ones, and hydrates all of
// them. prefetched holds relation rows keyed by display id. Cards are
// returned in display order; displays without a resolvable id get a card
// that is not retained.
func (b *Board) Sync(ctx context.Context, displays []model.Display, prefetched map[int64][]any) []*Card {
	cards := make([]*Card, len(displays))
	fresh := make([]bool, len(displays))
	rows := make([][]any, len(displays))

	b.mu.Lock()
	for i, d := range displays {
		id, ok := d.Reference().ID()
		if ok {
			rows[i] = prefetched[id]
		}
		if card, exists := b.cards[id]; ok && exists {
			cards[i] = card
			continue
		}
		cards[i] = NewCard(b.engine, d, rows[i])
		fresh[i] = true
		if ok {
			b.cards[id] = cards[i]
		}
	}
	b.mu.Unlock()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				var err error
				if fresh[i] {
					err = cards[i].Mount(ctx)
				} else {
					err = cards[i].Update(ctx, displays[i], rows[i])
				}
				if err != nil && !errors.Is(err, ErrHydrationSuperseded) {
					log.Printf("Warning: hydrating display %s failed: %v", displays[i].Reference(), err)
				}
			}
		}()
	}
	for i := range cards {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return cards
}

// Card returns the mounted card for a display, mounting and hydrating it
// if needed.
func (b *Board) Card(ctx context.Context, display model.Display) (*Card, error) {
	id, ok := display.Reference().ID()
	if !ok {
		return nil, ErrDisplayUnresolved
	}
	b.mu.Lock()
	card, exists := b.cards[id]
	if !exists {
		card = NewCard(b.engine, display, nil)
		b.cards[id] = card
	}
	b.mu.Unlock()

	if exists {
		return card, nil
	}
	if err := card.Mount(ctx); err != nil && !errors.Is(err, ErrHydrationSuperseded) {
		return card, err
	}
	return card, nil
}

// Lookup returns a mounted card without hydrating.
func (b *Board) Lookup(displayID int64) (*Card, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	card, ok := b.cards[displayID]
	return card, ok
}

// Unmount cancels a card's hydration and forgets it.
func (b *Board) Unmount(displayID int64) {
	b.mu.Lock()
	card, ok := b.cards[displayID]
	delete(b.cards, displayID)
	b.mu.Unlock()
	if ok {
		card.Unmount()
	}
}

// VisibleQueues returns the queues linked on every mounted card except
// the excluded display.
func (b *Board) VisibleQueues(excludeID int64) []model.Queue {
	b.mu.RLock()
	cards := make([]*Card, 0, len(b.cards))
	for id, card := range b.cards {
		if id != excludeID {
			cards = append(cards, card)
		}
	}
	b.mu.RUnlock()

	var queues []model.Queue
	for _, card := range cards {
		for _, l := range card.Links() {
			queues = append(queues, l.Queue)
		}
	}
	return dedupeQueues(queues)
}
