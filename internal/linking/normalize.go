package linking

import (
	"kds-display-backend/internal/model"
	"kds-display-backend/internal/ref"
)

// NormalizeLinks turns relation rows of any known shape into canonical links.
//
// A row whose queue carries an identity (embedded object or reference) is
// kept as a relation row. A row that is itself identifiable is taken to be a
// bare queue and wrapped as {id: row.id, queue: row}. Everything else is
// dropped. The result is never nil and normalizing it again is a no-op.
func NormalizeLinks[T any](rows []T) []model.Link {
	out := make([]model.Link, 0, len(rows))
	for _, row := range rows {
		if link, ok := normalizeRow(row); ok {
			out = append(out, link)
		}
	}
	return out
}

func normalizeRow(v any) (model.Link, bool) {
	switch x := v.(type) {
	case model.Link:
		return x, hasIdentity(x.Queue)
	case *model.Link:
		if x == nil {
			return model.Link{}, false
		}
		return *x, hasIdentity(x.Queue)
	case model.Queue:
		if !hasIdentity(x) {
			return model.Link{}, false
		}
		return model.Link{ID: x.ID, Queue: x}, true
	case map[string]any:
		return normalizeObject(x)
	default:
		return model.Link{}, false
	}
}

func normalizeObject(m map[string]any) (model.Link, bool) {
	if nested, present := m["queue"]; present {
		if _, isName := nested.(string); !isName || ref.FromAny(nested).Kind() == ref.KindPath {
			if q, ok := model.QueueFrom(nested); ok && hasIdentity(q) {
				return model.Link{
					ID:      ref.FromAny(m["id"]),
					Display: ref.FromAny(m["display"]),
					Queue:   q,
				}, true
			}
		}
	}
	if _, ok := ref.FromAny(m).ID(); ok {
		return model.Link{
			ID:      ref.FromAny(m["id"]),
			Display: ref.FromAny(m["display"]),
			Queue:   model.QueueFromMap(m),
		}, true
	}
	return model.Link{}, false
}

func hasIdentity(v ref.Identifiable) bool {
	_, ok := v.Reference().ID()
	return ok
}

func queueID(q model.Queue) (int64, bool) {
	return q.Reference().ID()
}

// filterByDisplay keeps rows whose display resolves to displayID. With
// strict unset, rows that carry no display reference are kept as well.
func filterByDisplay(links []model.Link, displayID int64, strict bool) []model.Link {
	out := make([]model.Link, 0, len(links))
	for _, l := range links {
		id, ok := l.Display.ID()
		if ok && id != displayID {
			continue
		}
		if !ok && strict {
			continue
		}
		out = append(out, l)
	}
	return out
}

// shapeForDisplay truncates products displays to a single link.
func shapeForDisplay(display model.Display, links []model.Link) []model.Link {
	if display.DisplayType == model.DisplayProducts && len(links) > 1 {
		return links[:1]
	}
	return links
}

// GroupByDisplay buckets raw relation rows by the display they belong to.
// Rows without a resolvable display are dropped.
func GroupByDisplay(rows []any) map[int64][]any {
	grouped := make(map[int64][]any)
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		id, ok := ref.Resolve(m["display"])
		if !ok {
			continue
		}
		grouped[id] = append(grouped[id], row)
	}
	return grouped
}
