package linking

import (
	"context"
	"log"
	"net/url"
	"strconv"

	"kds-display-backend/internal/model"
	"kds-display-backend/internal/ref"
)

// Candidates lists the queues a display may be linked to: the company's
// queues from the API merged with the company's queues already visible on
// the board or held in the link cache, and the display's own links,
// deduplicated by identity. companyID falls back to the display's company
// when zero. Board and cache queues of an unknown company are left out.
func (e *Engine) Candidates(ctx context.Context, companyID int64, display model.Display, current []model.Link, visible []model.Queue) ([]model.Queue, error) {
	if companyID <= 0 {
		companyID, _ = display.Company.ID()
	}

	var merged []model.Queue
	var lastErr error
	if companyID > 0 {
		merged, lastErr = e.companyQueues(ctx, companyID)
	} else {
		log.Printf("Warning: no company for display %s, listing known queues only", display.Reference())
	}

	merged = append(merged, ownedBy(visible, companyID)...)
	merged = append(merged, ownedBy(e.cache.Queues(ctx), companyID)...)
	for _, l := range current {
		merged = append(merged, l.Queue)
	}

	queues := dedupeQueues(merged)
	if len(queues) == 0 && lastErr != nil {
		return queues, lastErr
	}
	return queues, nil
}

// ownedBy keeps the queues whose company resolves to companyID.
func ownedBy(queues []model.Queue, companyID int64) []model.Queue {
	if companyID <= 0 {
		return nil
	}
	out := make([]model.Queue, 0, len(queues))
	for _, q := range queues {
		if ref.Same(q.Company, companyID) {
			out = append(out, q)
		}
	}
	return out
}

// companyQueues asks for the company by reference, then by plain id when
// that found nothing, then unfiltered with a client-side company filter.
func (e *Engine) companyQueues(ctx context.Context, companyID int64) ([]model.Queue, error) {
	var out []model.Queue
	var lastErr error
	attempts, failures := 0, 0
	for _, query := range []url.Values{
		{"company": {ref.Path("people", companyID)}},
		{"company": {strconv.FormatInt(companyID, 10)}},
	} {
		attempts++
		queues, err := e.remote.ListQueues(ctx, query)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		if len(queues) > 0 {
			out = append(out, queues...)
			break
		}
	}

	attempts++
	all, err := e.remote.ListQueues(ctx, nil)
	if err != nil {
		failures++
		lastErr = err
	}
	out = append(out, ownedBy(all, companyID)...)

	if failures == attempts {
		log.Printf("Warning: queue lookup for company %d failed: %v", companyID, lastErr)
		return out, lastErr
	}
	return out, nil
}

// dedupeQueues keeps the first queue per identity, merging later duplicates
// into it. Queues without any identity are dropped.
func dedupeQueues(queues []model.Queue) []model.Queue {
	out := make([]model.Queue, 0, len(queues))
	index := make(map[string]int)
	for _, q := range queues {
		key := queueKey(q)
		if key == "" {
			continue
		}
		if i, seen := index[key]; seen {
			out[i] = out[i].Merge(q)
			continue
		}
		index[key] = len(out)
		out = append(out, q)
	}
	return out
}

func queueKey(q model.Queue) string {
	if id, ok := queueID(q); ok {
		return "id:" + strconv.FormatInt(id, 10)
	}
	if q.IRI != "" {
		return "iri:" + q.IRI
	}
	return ""
}
