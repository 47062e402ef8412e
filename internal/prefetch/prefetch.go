// Package prefetch batch-loads display-queue relation rows so that display
// lists can be hydrated without a relation query per display.
package prefetch

import (
	"context"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"kds-display-backend/config"
	"kds-display-backend/internal/linking"
	"kds-display-backend/internal/metrics"
)

const snapshotKey = "display-links"

// Source lists relation rows. *remote.Client satisfies it.
type Source interface {
	ListDisplayQueues(ctx context.Context, query url.Values) ([]any, error)
}

// Service keeps a snapshot of relation rows grouped by display id.
type Service struct {
	cfg    config.PrefetchConfig
	source Source
	cache  *cache.Cache

	// load serializes on-demand loads with the periodic ones.
	load sync.Mutex
}

// NewService creates a prefetch service. A snapshot stays valid for two
// intervals so a single failed cycle does not empty it.
func NewService(cfg config.PrefetchConfig, source Source) *Service {
	ttl := 2 * cfg.Interval
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Service{
		cfg:    cfg,
		source: source,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// Run loads a snapshot immediately and then once per interval.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Prefetch is disabled. Not starting.")
		return
	}
	log.Println("Starting prefetch service...")

	if _, err := s.LoadOnce(ctx); err != nil {
		log.Printf("Initial prefetch failed: %v", err)
	}

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Prefetch service shutting down.")
			return
		case <-timer.C:
			if _, err := s.LoadOnce(ctx); err != nil {
				log.Printf("Prefetch cycle failed: %v", err)
			}
			timer.Reset(s.cfg.Interval)
		}
	}
}

// LoadOnce fetches every relation row and replaces the snapshot. A failed
// fetch leaves the previous snapshot in place.
func (s *Service) LoadOnce(ctx context.Context) (map[int64][]any, error) {
	s.load.Lock()
	defer s.load.Unlock()

	rows, err := s.source.ListDisplayQueues(ctx, nil)
	if err != nil {
		return nil, err
	}
	grouped := linking.GroupByDisplay(rows)
	s.cache.SetDefault(snapshotKey, grouped)
	metrics.SetPrefetchedLinks(len(rows))
	log.Printf("Prefetched %d relation rows for %d displays", len(rows), len(grouped))
	return grouped, nil
}

// Snapshot returns the current snapshot, loading one if none is held.
func (s *Service) Snapshot(ctx context.Context) (map[int64][]any, error) {
	if grouped, ok := s.cached(); ok {
		return grouped, nil
	}
	return s.LoadOnce(ctx)
}

// DisplayChanged drops one display from the snapshot so that its next
// hydration reads the relation endpoint. It implements linking.Notifier.
func (s *Service) DisplayChanged(_ context.Context, displayID int64) {
	s.load.Lock()
	defer s.load.Unlock()

	grouped, ok := s.cached()
	if !ok {
		return
	}
	if _, present := grouped[displayID]; !present {
		return
	}
	next := make(map[int64][]any, len(grouped))
	for id, rows := range grouped {
		if id != displayID {
			next[id] = rows
		}
	}
	s.cache.SetDefault(snapshotKey, next)
}

func (s *Service) cached() (map[int64][]any, bool) {
	v, found := s.cache.Get(snapshotKey)
	if !found {
		return nil, false
	}
	grouped, ok := v.(map[int64][]any)
	return grouped, ok
}
