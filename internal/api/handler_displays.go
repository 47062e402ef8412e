package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"kds-display-backend/internal/linking"
	"kds-display-backend/internal/model"
)

// displayResponse is a display with its hydrated queue links.
type displayResponse struct {
	model.Display
	Queues []model.Link   `json:"queues"`
	Source linking.Source `json:"source"`
	State  string         `json:"state"`
}

func newDisplayResponse(card *linking.Card) displayResponse {
	return displayResponse{
		Display: card.Display(),
		Queues:  card.Links(),
		Source:  card.Source(),
		State:   card.State().String(),
	}
}

// ListDisplays handles GET /api/displays?company={id}.
func (h *Handler) ListDisplays(c *gin.Context) {
	companyID, ok := companyQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	displays, err := h.engine().Displays(ctx, companyID)
	if err != nil {
		writeError(c, err)
		return
	}

	var prefetched map[int64][]any
	if h.prefetch != nil {
		if prefetched, err = h.prefetch.Snapshot(ctx); err != nil {
			log.Printf("Warning: prefetch unavailable, hydrating displays one by one: %v", err)
		}
	}

	cards := h.board.Sync(ctx, displays, prefetched)
	response := make([]displayResponse, 0, len(cards))
	for _, card := range cards {
		response = append(response, newDisplayResponse(card))
	}
	c.JSON(http.StatusOK, response)
}

type saveDisplayRequest struct {
	Display     string            `json:"display"`
	DisplayType model.DisplayType `json:"displayType"`
	// LegacyType is the old spelling of displayType.
	LegacyType model.DisplayType `json:"display_type"`
	CompanyID  int64             `json:"companyId"`
}

func (r saveDisplayRequest) input(id int64) linking.DisplayInput {
	displayType := r.DisplayType
	if displayType == "" {
		displayType = r.LegacyType
	}
	return linking.DisplayInput{ID: id, Display: r.Display, DisplayType: displayType, CompanyID: r.CompanyID}
}

// CreateDisplay handles POST /api/displays.
func (h *Handler) CreateDisplay(c *gin.Context) {
	var req saveDisplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	display, err := h.engine().SaveDisplay(c.Request.Context(), req.input(0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, display)
}

// UpdateDisplay handles PUT /api/displays/:id.
func (h *Handler) UpdateDisplay(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req saveDisplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	display, err := h.engine().SaveDisplay(c.Request.Context(), req.input(id))
	if err != nil {
		writeError(c, err)
		return
	}
	// the display type may have changed how its links are shaped
	h.board.Unmount(id)
	c.JSON(http.StatusOK, display)
}

// DeleteDisplay handles DELETE /api/displays/:id.
func (h *Handler) DeleteDisplay(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.engine().DeleteDisplay(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	h.board.Unmount(id)
	c.Status(http.StatusNoContent)
}

// GetDisplayQueues handles GET /api/displays/:id/queues, re-hydrating the display.
func (h *Handler) GetDisplayQueues(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	_, wasMounted := h.board.Lookup(id)
	card, ok := h.card(c)
	if !ok {
		return
	}
	// a card mounted by this request was hydrated just now
	if !wasMounted {
		c.JSON(http.StatusOK, newDisplayResponse(card))
		return
	}
	if err := card.Hydrate(c.Request.Context()); err != nil && !errors.Is(err, linking.ErrHydrationSuperseded) {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDisplayResponse(card))
}

// GetQueueOptions handles GET /api/displays/:id/queue-options?company={id}.
func (h *Handler) GetQueueOptions(c *gin.Context) {
	companyID, ok := companyQuery(c)
	if !ok {
		return
	}
	card, ok := h.card(c)
	if !ok {
		return
	}
	displayID, _ := card.Display().Reference().ID()
	queues, err := card.Candidates(c.Request.Context(), companyID, h.board.VisibleQueues(displayID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, queues)
}
