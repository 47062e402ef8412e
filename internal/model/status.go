package model

import (
	"encoding/json"
	"strings"

	"kds-display-backend/internal/ref"
)

// StatusContextDisplay is the status context used for production queues.
const StatusContextDisplay = "display"

// Status is a named, colored state. RealStatus is the category tag used to
// classify a status as intake, in-progress or done.
type Status struct {
	ID         ref.Ref `json:"id,omitzero"`
	IRI        string  `json:"@id,omitempty"`
	Status     string  `json:"status,omitempty"`
	Color      string  `json:"color,omitempty"`
	RealStatus string  `json:"realStatus,omitempty"`
	Context    string  `json:"context,omitempty"`
}

// StatusFrom accepts either an embedded status object or a bare reference.
func StatusFrom(v any) *Status {
	switch x := v.(type) {
	case nil:
		return nil
	case *Status:
		return x
	case Status:
		return &x
	case map[string]any:
		return &Status{
			ID:         ref.FromAny(x["id"]),
			IRI:        stringOf(x["@id"]),
			Status:     stringOf(x["status"]),
			Color:      stringOf(x["color"]),
			RealStatus: stringOf(x["realStatus"]),
			Context:    stringOf(x["context"]),
		}
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		if strings.Contains(x, "/") {
			return &Status{IRI: x}
		}
		return &Status{ID: ref.FromAny(x)}
	default:
		r := ref.FromAny(x)
		if r.IsZero() {
			return nil
		}
		return &Status{ID: r}
	}
}

// Reference implements ref.Identifiable.
func (s Status) Reference() ref.Ref {
	if _, ok := s.ID.ID(); ok {
		return s.ID
	}
	if s.IRI != "" {
		return ref.FromAny(s.IRI)
	}
	return s.ID
}

// Path returns the reference to submit when pointing a queue slot at this status.
func (s Status) Path() string {
	if s.IRI != "" {
		return s.IRI
	}
	if id, ok := s.ID.ID(); ok {
		return ref.Path("statuses", id)
	}
	return ""
}

func (s *Status) UnmarshalJSON(data []byte) error {
	v, err := decodeValue(data)
	if err != nil {
		return err
	}
	if decoded := StatusFrom(v); decoded != nil {
		*s = *decoded
	} else {
		*s = Status{}
	}
	return nil
}

var _ json.Unmarshaler = (*Status)(nil)
