package linking

import (
	"context"
	"log"
	"net/url"
	"strings"

	"kds-display-backend/internal/metrics"
	"kds-display-backend/internal/model"
	"kds-display-backend/internal/ref"
	"kds-display-backend/internal/remote"
)

// Status category tags, matched against Status.RealStatus.
const (
	realStatusIn      = "in"
	realStatusWorking = "working"
	realStatusOut     = "out"
)

// CreateQueueAndBind creates a queue named name for the company and links it
// to the display. When the API does not return the new queue's id it is
// recovered by reloading the queue list under e.Retry.
func (e *Engine) CreateQueueAndBind(ctx context.Context, companyID int64, display model.Display, current []model.Link, name string) (Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Outcome{}, ErrEmptyName
	}
	if companyID <= 0 {
		companyID, _ = display.Company.ID()
	}
	if companyID <= 0 {
		return Outcome{}, ErrCompanyUnresolved
	}
	if _, ok := display.Reference().ID(); !ok {
		return Outcome{}, ErrDisplayUnresolved
	}

	ctx = context.WithoutCancel(ctx)
	company := ref.Path("people", companyID)

	statuses, err := e.remote.ListStatuses(ctx, url.Values{"context": {model.StatusContextDisplay}})
	if err != nil {
		log.Printf("Warning: status lookup failed, creating queue %q without statuses: %v", name, err)
	}
	in := QueueInputFor(name, company, statuses)

	created, err := e.remote.CreateQueue(ctx, in)
	if err != nil {
		metrics.TrackOperation("create", "error")
		return Outcome{}, err
	}
	queue := created.Merge(model.Queue{Queue: name, Company: ref.FromAny(company)})

	if _, ok := queueID(queue); !ok {
		confirmed, attempts, err := e.Retry.Confirm(ctx, name, func(ctx context.Context, _ int) ([]model.Queue, error) {
			scoped, err := e.remote.ListQueues(ctx, url.Values{"company": {company}, "order[id]": {"desc"}})
			if err == nil && len(scoped) > 0 {
				return scoped, nil
			}
			return e.remote.ListQueues(ctx, url.Values{"order[id]": {"desc"}})
		})
		metrics.ObserveConfirmAttempts(attempts)
		if err != nil {
			metrics.TrackOperation("create", "unconfirmed")
			return Outcome{}, err
		}
		queue = confirmed.Merge(queue)
	}
	metrics.TrackOperation("create", "ok")

	return e.Link(ctx, display, current, queue)
}

// QueueInputFor builds the creation payload, pointing the three status
// slots at the best matching statuses.
func QueueInputFor(name, company string, statuses []model.Status) remote.QueueInput {
	in := remote.QueueInput{Queue: name, Company: company}
	slots := pickStatuses(statuses)
	if slots[0] != nil {
		in.StatusIn = slots[0].Path()
	}
	if slots[1] != nil {
		in.StatusWorking = slots[1].Path()
	}
	if slots[2] != nil {
		in.StatusOut = slots[2].Path()
	}
	return in
}

// pickStatuses assigns statuses to the in, working and out slots. Every
// slot first looks for an unused status whose category equals its tag, then
// for one whose category contains it, then takes the status at the slot's
// position, and finally the first status. Substring matching visits the
// most specific tags first so that "in" does not claim a "working" status.
func pickStatuses(statuses []model.Status) [3]*model.Status {
	var slots [3]*model.Status
	if len(statuses) == 0 {
		return slots
	}
	tags := [3]string{realStatusIn, realStatusWorking, realStatusOut}
	used := make([]bool, len(statuses))

	match := func(slot int, fn func(category, tag string) bool) {
		if slots[slot] != nil {
			return
		}
		for i, s := range statuses {
			if !used[i] && fn(s.RealStatus, tags[slot]) {
				used[i] = true
				slots[slot] = &statuses[i]
				return
			}
		}
	}
	exact := func(category, tag string) bool {
		return strings.EqualFold(strings.TrimSpace(category), tag)
	}
	contains := func(category, tag string) bool {
		return strings.Contains(strings.ToLower(category), tag)
	}

	for slot := range slots {
		match(slot, exact)
	}
	for _, slot := range []int{1, 2, 0} {
		match(slot, contains)
	}
	for slot := range slots {
		if slots[slot] != nil {
			continue
		}
		if slot < len(statuses) {
			slots[slot] = &statuses[slot]
		} else {
			slots[slot] = &statuses[0]
		}
	}
	return slots
}
