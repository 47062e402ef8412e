package model

import "kds-display-backend/internal/ref"

// Product is the subset of a catalog product needed to route it to a queue.
type Product struct {
	ID      ref.Ref `json:"id"`
	IRI     string  `json:"@id,omitempty"`
	Product string  `json:"product"`
	Queue   ref.Ref `json:"queue,omitzero"`
	Company ref.Ref `json:"company,omitzero"`
}

// Reference implements ref.Identifiable.
func (p Product) Reference() ref.Ref {
	if _, ok := p.ID.ID(); ok {
		return p.ID
	}
	return ref.FromAny(p.IRI)
}
