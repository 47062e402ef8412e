package linking

import (
	"context"
	"log"

	"kds-display-backend/internal/metrics"
	"kds-display-backend/internal/model"
	"kds-display-backend/internal/remote"
)

// UnlinkResult is the outcome of an unlink request.
type UnlinkResult struct {
	Removed model.Link   `json:"removed"`
	Links   []model.Link `json:"links"`
	// Remote is false when no relation row could be found and only local
	// state was cleared.
	Remote bool `json:"remote"`
}

// Unlink removes target from display. A target without a link id is looked
// up on the relation endpoint first. A relation that is already gone counts
// as success. Once submitted the operation runs to completion even if ctx is
// cancelled.
func (e *Engine) Unlink(ctx context.Context, display model.Display, current []model.Link, target model.Link) (UnlinkResult, error) {
	displayID, hasDisplay := display.Reference().ID()
	ctx = context.WithoutCancel(ctx)

	linkID, ok := remoteLinkID(target)
	if !ok && hasDisplay {
		if row, found := e.findRow(ctx, displayID, target); found {
			target = row
			linkID, ok = remoteLinkID(row)
		}
	}

	if !ok {
		log.Printf("Warning: no relation row to delete for display %s, clearing local state", display.Reference())
		if hasDisplay {
			e.cache.Delete(ctx, displayID)
		}
		metrics.TrackOperation("unlink", "local")
		return UnlinkResult{Removed: target, Links: removeLink(current, target)}, nil
	}

	if err := e.remote.DeleteDisplayQueue(ctx, linkID); err != nil && !remote.IsNotFound(err) {
		metrics.TrackOperation("unlink", "error")
		return UnlinkResult{}, err
	}

	if hasDisplay {
		e.cache.Delete(ctx, displayID)
		e.notify(ctx, displayID)
	}
	metrics.TrackOperation("unlink", "ok")
	return UnlinkResult{Removed: target, Links: removeLink(current, target), Remote: true}, nil
}

// remoteLinkID resolves the id of a relation row. Locally synthesized rows
// have none.
func remoteLinkID(l model.Link) (int64, bool) {
	if l.IsLocal() {
		return 0, false
	}
	return l.ID.ID()
}

// findRow re-reads the display's relation rows and picks the one for
// target's queue, or the first row when target names no queue.
func (e *Engine) findRow(ctx context.Context, displayID int64, target model.Link) (model.Link, bool) {
	links, err := e.fetchLinks(ctx, displayID)
	if err != nil {
		log.Printf("Warning: relation lookup for display %d failed: %v", displayID, err)
	}
	qid, hasQueue := queueID(target.Queue)
	for _, l := range links {
		if _, ok := remoteLinkID(l); !ok {
			continue
		}
		if !hasQueue {
			return l, true
		}
		if id, ok := queueID(l.Queue); ok && id == qid {
			return l, true
		}
	}
	return model.Link{}, false
}

// removeLink drops target from links, matching by link id or by queue. An
// unidentifiable target clears the list.
func removeLink(links []model.Link, target model.Link) []model.Link {
	linkID, hasLink := target.ID.ID()
	localID := target.ID.Text()
	qid, hasQueue := queueID(target.Queue)
	out := make([]model.Link, 0, len(links))
	if !hasLink && localID == "" && !hasQueue {
		return out
	}
	for _, l := range links {
		if id, ok := l.ID.ID(); hasLink && ok && id == linkID {
			continue
		}
		if localID != "" && l.ID.Text() == localID {
			continue
		}
		if id, ok := queueID(l.Queue); hasQueue && ok && id == qid {
			continue
		}
		out = append(out, l)
	}
	return out
}
