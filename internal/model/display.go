package model

import (
	"kds-display-backend/internal/ref"
)

// DisplayType selects how a display renders its queues.
type DisplayType string

const (
	DisplayOrders         DisplayType = "orders"
	DisplayProducts       DisplayType = "products"
	DisplayTV             DisplayType = "tv"
	DisplayProductsOrders DisplayType = "products x orders"
)

// Valid reports whether t is a known display type.
func (t DisplayType) Valid() bool {
	switch t {
	case DisplayOrders, DisplayProducts, DisplayTV, DisplayProductsOrders:
		return true
	}
	return false
}

// EmbeddedRelationFields lists the field names the backend has used over
// time for a display's embedded queue links.
var EmbeddedRelationFields = []string{"displayQueue", "displayQueues", "display_queue", "display_queues"}

// Display is a screen definition owned by a company.
type Display struct {
	ID          ref.Ref     `json:"id,omitzero"`
	IRI         string      `json:"@id,omitempty"`
	Display     string      `json:"display"`
	DisplayType DisplayType `json:"displayType"`
	Company     ref.Ref     `json:"company,omitzero"`

	// Embedded holds the raw rows of whichever embedded relation field was present.
	Embedded []any `json:"-"`
}

// DisplayFromMap builds a display from a loosely shaped JSON object.
func DisplayFromMap(m map[string]any) Display {
	d := Display{
		ID:      ref.FromAny(m["id"]),
		IRI:     stringOf(m["@id"]),
		Display: stringOf(m["display"]),
		Company: ref.FromAny(m["company"]),
	}
	d.DisplayType = DisplayType(stringOf(m["displayType"]))
	if d.DisplayType == "" {
		d.DisplayType = DisplayType(stringOf(m["display_type"]))
	}
	for _, field := range EmbeddedRelationFields {
		switch rows := m[field].(type) {
		case []any:
			d.Embedded = rows
		case map[string]any:
			d.Embedded = []any{rows}
		default:
			continue
		}
		break
	}
	return d
}

// Reference implements ref.Identifiable.
func (d Display) Reference() ref.Ref {
	if _, ok := d.ID.ID(); ok {
		return d.ID
	}
	if d.IRI != "" {
		return ref.FromAny(d.IRI)
	}
	return d.ID
}

func (d *Display) UnmarshalJSON(data []byte) error {
	v, err := decodeValue(data)
	if err != nil {
		return err
	}
	m, _ := v.(map[string]any)
	*d = DisplayFromMap(m)
	return nil
}
