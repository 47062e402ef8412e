package model

import (
	"strings"

	"kds-display-backend/internal/ref"
)

// Queue is a named production station. The three status slots form an
// ordered pipeline (intake, in progress, done); any of them may be absent.
type Queue struct {
	ID            ref.Ref `json:"id,omitzero"`
	IRI           string  `json:"@id,omitempty"`
	Queue         string  `json:"queue"`
	Company       ref.Ref `json:"company,omitzero"`
	StatusIn      *Status `json:"status_in,omitempty"`
	StatusWorking *Status `json:"status_working,omitempty"`
	StatusOut     *Status `json:"status_out,omitempty"`
}

// QueueFromMap builds a queue from a loosely shaped JSON object.
func QueueFromMap(m map[string]any) Queue {
	return Queue{
		ID:            ref.FromAny(m["id"]),
		IRI:           stringOf(m["@id"]),
		Queue:         stringOf(m["queue"]),
		Company:       ref.FromAny(m["company"]),
		StatusIn:      StatusFrom(m["status_in"]),
		StatusWorking: StatusFrom(m["status_working"]),
		StatusOut:     StatusFrom(m["status_out"]),
	}
}

// QueueFrom accepts a queue object, a typed queue or a bare reference.
func QueueFrom(v any) (Queue, bool) {
	switch x := v.(type) {
	case nil:
		return Queue{}, false
	case Queue:
		return x, true
	case *Queue:
		if x == nil {
			return Queue{}, false
		}
		return *x, true
	case map[string]any:
		return QueueFromMap(x), true
	case string:
		if strings.Contains(x, "/") {
			return Queue{IRI: x}, true
		}
		return Queue{ID: ref.FromAny(x)}, true
	default:
		return Queue{ID: ref.FromAny(x)}, true
	}
}

// Reference implements ref.Identifiable.
func (q Queue) Reference() ref.Ref {
	if _, ok := q.ID.ID(); ok {
		return q.ID
	}
	if q.IRI != "" {
		return ref.FromAny(q.IRI)
	}
	return q.ID
}

// Merge fills fields missing from q with those of other.
func (q Queue) Merge(other Queue) Queue {
	if _, ok := q.ID.ID(); !ok {
		q.ID = other.ID
	}
	if q.IRI == "" {
		q.IRI = other.IRI
	}
	if q.Queue == "" {
		q.Queue = other.Queue
	}
	if q.Company.IsZero() {
		q.Company = other.Company
	}
	if q.StatusIn == nil {
		q.StatusIn = other.StatusIn
	}
	if q.StatusWorking == nil {
		q.StatusWorking = other.StatusWorking
	}
	if q.StatusOut == nil {
		q.StatusOut = other.StatusOut
	}
	return q
}

func (q *Queue) UnmarshalJSON(data []byte) error {
	v, err := decodeValue(data)
	if err != nil {
		return err
	}
	decoded, _ := QueueFrom(v)
	*q = decoded
	return nil
}
