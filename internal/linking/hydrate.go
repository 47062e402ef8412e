package linking

import (
	"context"
	"log"
	"net/url"
	"strconv"

	"kds-display-backend/internal/metrics"
	"kds-display-backend/internal/model"
	"kds-display-backend/internal/ref"
)

// Source names where a hydration result came from.
type Source string

const (
	SourcePrefetched Source = "prefetched"
	SourceEmbedded   Source = "embedded"
	SourceRemote     Source = "remote"
	SourceLocalCache Source = "local-cache"
	SourceNone       Source = "none"
)

// Hydration is the resolved link list of one display.
type Hydration struct {
	Links  []model.Link `json:"links"`
	Source Source       `json:"source"`
}

// Hydrate resolves the links of a display, taking the first non-empty of:
// prefetched rows, the display's embedded relation, the relation endpoint,
// and finally the local link cache. It returns ctx.Err() if cancelled.
func (e *Engine) Hydrate(ctx context.Context, display model.Display, prefetched []any) (Hydration, error) {
	h, err := e.hydrate(ctx, display, prefetched)
	if err != nil {
		return Hydration{}, err
	}
	h.Links = shapeForDisplay(display, h.Links)
	metrics.TrackHydration(string(h.Source))
	return h, nil
}

func (e *Engine) hydrate(ctx context.Context, display model.Display, prefetched []any) (Hydration, error) {
	if links := NormalizeLinks(prefetched); len(links) > 0 {
		return Hydration{Links: links, Source: SourcePrefetched}, nil
	}

	displayID, hasID := display.Reference().ID()

	embedded := NormalizeLinks(display.Embedded)
	if hasID {
		embedded = filterByDisplay(embedded, displayID, false)
	}
	if len(embedded) > 0 {
		return Hydration{Links: embedded, Source: SourceEmbedded}, nil
	}

	if !hasID {
		return Hydration{Links: []model.Link{}, Source: SourceNone}, nil
	}

	links, err := e.fetchLinks(ctx, displayID)
	if ctx.Err() != nil {
		return Hydration{}, ctx.Err()
	}
	if err != nil {
		log.Printf("Warning: relation lookup for display %d failed: %v", displayID, err)
	}
	if len(links) > 0 {
		return Hydration{Links: links, Source: SourceRemote}, nil
	}

	if q, ok := e.cache.Lookup(ctx, displayID); ok {
		if qid, ok := queueID(q); ok {
			return Hydration{
				Links: []model.Link{{
					ID:      ref.FromAny(model.LocalLinkID(displayID, qid)),
					Display: display.Reference(),
					Queue:   q,
				}},
				Source: SourceLocalCache,
			}, nil
		}
	}
	return Hydration{Links: []model.Link{}, Source: SourceNone}, nil
}

// relationQueries are the filter spellings accepted by different versions
// of the relation endpoint, most specific first.
func relationQueries(displayID int64) []url.Values {
	id := strconv.FormatInt(displayID, 10)
	return []url.Values{
		{"display": {ref.Path("displays", displayID)}},
		{"display": {id}},
		{"display.id": {id}},
	}
}

// fetchLinks reads a display's links from the relation endpoint, trying each
// filter spelling and finally an unfiltered list filtered client-side.
func (e *Engine) fetchLinks(ctx context.Context, displayID int64) ([]model.Link, error) {
	var lastErr error
	for _, query := range relationQueries(displayID) {
		rows, err := e.remote.ListDisplayQueues(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if links := filterByDisplay(NormalizeLinks(rows), displayID, false); len(links) > 0 {
			return links, nil
		}
	}

	rows, err := e.remote.ListDisplayQueues(ctx, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	links := filterByDisplay(NormalizeLinks(rows), displayID, true)
	if len(links) == 0 && lastErr != nil {
		return links, lastErr
	}
	return links, nil
}
