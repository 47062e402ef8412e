package linking

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"kds-display-backend/internal/model"
	"kds-display-backend/internal/ref"
	"kds-display-backend/internal/remote"
)

// DisplayInput is a display create or update request. A zero ID creates.
type DisplayInput struct {
	ID          int64             `json:"id"`
	Display     string            `json:"display"`
	DisplayType model.DisplayType `json:"displayType"`
	CompanyID   int64             `json:"companyId"`
}

// Displays lists a company's displays.
func (e *Engine) Displays(ctx context.Context, companyID int64) ([]model.Display, error) {
	if companyID <= 0 {
		return nil, ErrCompanyUnresolved
	}
	return e.remote.ListDisplays(ctx, url.Values{"company": {strconv.FormatInt(companyID, 10)}})
}

// Display fetches one display.
func (e *Engine) Display(ctx context.Context, id int64) (model.Display, error) {
	return e.remote.GetDisplay(ctx, id)
}

// SaveDisplay validates and stores a display. Updates notify listeners of
// the display.
func (e *Engine) SaveDisplay(ctx context.Context, in DisplayInput) (model.Display, error) {
	in.Display = strings.TrimSpace(in.Display)
	if in.Display == "" {
		return model.Display{}, ErrEmptyName
	}
	if in.CompanyID <= 0 {
		return model.Display{}, ErrCompanyUnresolved
	}
	if in.DisplayType == "" {
		in.DisplayType = model.DisplayOrders
	}
	if !in.DisplayType.Valid() {
		return model.Display{}, ErrInvalidDisplayType
	}

	saved, err := e.remote.SaveDisplay(ctx, remote.DisplayInput{
		ID:          in.ID,
		Display:     in.Display,
		DisplayType: string(in.DisplayType),
		Company:     ref.Path("people", in.CompanyID),
	})
	if err != nil {
		return model.Display{}, err
	}
	if in.ID > 0 {
		e.notify(ctx, in.ID)
	}
	return saved, nil
}

// DeleteDisplay removes a display and forgets its cached link. A display
// that is already gone counts as deleted.
func (e *Engine) DeleteDisplay(ctx context.Context, id int64) error {
	if err := e.remote.DeleteDisplay(ctx, id); err != nil && !remote.IsNotFound(err) {
		return err
	}
	e.cache.Delete(ctx, id)
	e.notify(ctx, id)
	return nil
}

// QueueProducts lists the company's products routed to a queue.
func (e *Engine) QueueProducts(ctx context.Context, companyID, queueID int64) ([]model.Product, error) {
	products, err := e.companyProducts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if ref.Same(p.Queue, queueID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// AvailableProducts lists the company's products not routed to any queue
// whose name contains search, ignoring case.
func (e *Engine) AvailableProducts(ctx context.Context, companyID int64, search string) ([]model.Product, error) {
	products, err := e.companyProducts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if _, routed := p.Queue.ID(); routed {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Product), search) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (e *Engine) companyProducts(ctx context.Context, companyID int64) ([]model.Product, error) {
	if companyID <= 0 {
		return nil, ErrCompanyUnresolved
	}
	return e.remote.ListProducts(ctx, url.Values{"company": {strconv.FormatInt(companyID, 10)}})
}

// AssignProduct routes a product to a queue.
func (e *Engine) AssignProduct(ctx context.Context, productID, queueID int64) error {
	path := ref.Path("queues", queueID)
	return e.remote.SetProductQueue(ctx, productID, &path)
}

// UnassignProduct clears a product's queue.
func (e *Engine) UnassignProduct(ctx context.Context, productID int64) error {
	return e.remote.SetProductQueue(ctx, productID, nil)
}
