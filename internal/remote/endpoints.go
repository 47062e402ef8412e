package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"kds-display-backend/internal/model"
)

const (
	displayQueuesPath = "/display_queues"
	queuesPath        = "/queues"
	statusesPath      = "/statuses"
	displaysPath      = "/displays"
	productsPath      = "/products"
)

// LinkInput is the relation creation payload; both sides are path references.
type LinkInput struct {
	Display string `json:"display"`
	Queue   string `json:"queue"`
}

// QueueInput is the queue creation payload. Status slots are optional path references.
type QueueInput struct {
	Queue         string `json:"queue"`
	Company       string `json:"company"`
	StatusIn      string `json:"status_in,omitempty"`
	StatusWorking string `json:"status_working,omitempty"`
	StatusOut     string `json:"status_out,omitempty"`
}

// DisplayInput is the display save payload. A zero ID creates a new display.
type DisplayInput struct {
	ID          int64  `json:"-"`
	Display     string `json:"display"`
	DisplayType string `json:"displayType"`
	Company     string `json:"company"`
}

func itemPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}

// ListDisplayQueues returns raw relation rows; their shape varies by endpoint version.
func (c *Client) ListDisplayQueues(ctx context.Context, query url.Values) ([]any, error) {
	return c.list(ctx, displayQueuesPath, query)
}

// CreateDisplayQueue links a queue to a display and returns the raw created row.
func (c *Client) CreateDisplayQueue(ctx context.Context, in LinkInput) (any, error) {
	var out any
	if err := c.do(ctx, http.MethodPost, displayQueuesPath, nil, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDisplayQueue removes a relation row.
func (c *Client) DeleteDisplayQueue(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(displayQueuesPath, id), nil, nil, nil)
}

// ListQueues lists queues matching the query.
func (c *Client) ListQueues(ctx context.Context, query url.Values) ([]model.Queue, error) {
	items, err := c.list(ctx, queuesPath, query)
	if err != nil {
		return nil, err
	}
	return convert[model.Queue](items)
}

// CreateQueue creates a queue. The returned queue may lack an id.
func (c *Client) CreateQueue(ctx context.Context, in QueueInput) (model.Queue, error) {
	var out model.Queue
	if err := c.do(ctx, http.MethodPost, queuesPath, nil, in, &out); err != nil {
		return model.Queue{}, err
	}
	return out, nil
}

// ListStatuses lists statuses matching the query.
func (c *Client) ListStatuses(ctx context.Context, query url.Values) ([]model.Status, error) {
	items, err := c.list(ctx, statusesPath, query)
	if err != nil {
		return nil, err
	}
	return convert[model.Status](items)
}

// ListDisplays lists displays matching the query.
func (c *Client) ListDisplays(ctx context.Context, query url.Values) ([]model.Display, error) {
	items, err := c.list(ctx, displaysPath, query)
	if err != nil {
		return nil, err
	}
	return convert[model.Display](items)
}

// GetDisplay fetches one display including any embedded relation.
func (c *Client) GetDisplay(ctx context.Context, id int64) (model.Display, error) {
	var out model.Display
	if err := c.do(ctx, http.MethodGet, itemPath(displaysPath, id), nil, nil, &out); err != nil {
		return model.Display{}, err
	}
	return out, nil
}

// SaveDisplay creates or replaces a display.
func (c *Client) SaveDisplay(ctx context.Context, in DisplayInput) (model.Display, error) {
	method, path := http.MethodPost, displaysPath
	if in.ID > 0 {
		method, path = http.MethodPut, itemPath(displaysPath, in.ID)
	}
	var out model.Display
	if err := c.do(ctx, method, path, nil, in, &out); err != nil {
		return model.Display{}, err
	}
	return out, nil
}

// DeleteDisplay removes a display.
func (c *Client) DeleteDisplay(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(displaysPath, id), nil, nil, nil)
}

// ListProducts lists products matching the query.
func (c *Client) ListProducts(ctx context.Context, query url.Values) ([]model.Product, error) {
	items, err := c.list(ctx, productsPath, query)
	if err != nil {
		return nil, err
	}
	return convert[model.Product](items)
}

// SetProductQueue routes a product to a queue; a nil queue clears the route.
func (c *Client) SetProductQueue(ctx context.Context, productID int64, queue *string) error {
	body := map[string]any{"queue": nil}
	if queue != nil {
		body["queue"] = *queue
	}
	return c.do(ctx, http.MethodPut, itemPath(productsPath, productID), nil, body, nil)
}
