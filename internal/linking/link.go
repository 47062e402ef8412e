package linking

import (
	"context"
	"log"

	"kds-display-backend/internal/metrics"
	"kds-display-backend/internal/model"
	"kds-display-backend/internal/ref"
	"kds-display-backend/internal/remote"
)

// Outcome is the result of a link request.
type Outcome struct {
	Action Action       `json:"action"`
	Link   model.Link   `json:"link"`
	Links  []model.Link `json:"links"`
	// QueueID is the queue the caller should show; for a redirect it is the
	// queue the display is already linked to.
	QueueID int64 `json:"queueId"`
}

// Link attaches queue to display. current is the display's link list as the
// caller last saw it. Once submitted the operation runs to completion even if
// ctx is cancelled.
func (e *Engine) Link(ctx context.Context, display model.Display, current []model.Link, queue model.Queue) (Outcome, error) {
	displayID, ok := display.Reference().ID()
	if !ok {
		metrics.TrackOperation("link", "invalid")
		return Outcome{}, ErrDisplayUnresolved
	}
	if _, action := Transition(display.DisplayType, StateOf(current), EventLink); action == ActionRedirect {
		existing, _ := queueID(current[0].Queue)
		metrics.TrackOperation("link", "redirect")
		return Outcome{Action: ActionRedirect, Link: current[0], Links: current, QueueID: existing}, nil
	}

	qid, ok := queueID(queue)
	if !ok {
		metrics.TrackOperation("link", "invalid")
		return Outcome{}, ErrQueueUnresolved
	}

	ctx = context.WithoutCancel(ctx)

	created, err := e.remote.CreateDisplayQueue(ctx, remote.LinkInput{
		Display: ref.Path("displays", displayID),
		Queue:   ref.Path("queues", qid),
	})
	if err != nil {
		metrics.TrackOperation("link", "error")
		return Outcome{}, err
	}

	link, ok := usableRow(created, qid)
	if !ok {
		link, ok = e.readBack(ctx, displayID, qid)
	}
	if !ok {
		link = model.Link{
			ID:      ref.FromAny(model.LocalLinkID(displayID, qid)),
			Display: ref.Int(displayID),
			Queue:   queue,
		}
	}
	link.Queue = link.Queue.Merge(queue)

	links := shapeForDisplay(display, appendLink(current, link))

	e.cache.Put(ctx, displayID, link.Queue)
	e.notify(ctx, displayID)
	metrics.TrackOperation("link", "ok")
	return Outcome{Action: ActionCreate, Link: link, Links: links, QueueID: qid}, nil
}

// usableRow accepts a create response only if it normalizes to a row for
// the queue that was linked.
func usableRow(created any, qid int64) (model.Link, bool) {
	for _, l := range NormalizeLinks([]any{created}) {
		if id, ok := queueID(l.Queue); ok && id == qid {
			return l, true
		}
	}
	return model.Link{}, false
}

func (e *Engine) readBack(ctx context.Context, displayID, qid int64) (model.Link, bool) {
	links, err := e.fetchLinks(ctx, displayID)
	if err != nil {
		log.Printf("Warning: could not read back link %d -> %d: %v", displayID, qid, err)
	}
	for _, l := range links {
		if id, ok := queueID(l.Queue); ok && id == qid {
			return l, true
		}
	}
	return model.Link{}, false
}

// appendLink adds link to links, replacing any row for the same queue.
func appendLink(links []model.Link, link model.Link) []model.Link {
	qid, _ := queueID(link.Queue)
	out := make([]model.Link, 0, len(links)+1)
	for _, l := range links {
		if id, ok := queueID(l.Queue); ok && id == qid {
			continue
		}
		out = append(out, l)
	}
	return append(out, link)
}
