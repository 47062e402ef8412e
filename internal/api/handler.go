package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"kds-display-backend/internal/linking"
	"kds-display-backend/internal/remote"
	"kds-display-backend/internal/store"
)

// Prefetcher supplies batch-loaded relation rows keyed by display id.
type Prefetcher interface {
	Snapshot(ctx context.Context) (map[int64][]any, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	board    *linking.Board
	prefetch Prefetcher
	store    store.Store
	webpush  *webpush.Options
}

// NewHandler creates a new API handler. prefetch and webpushOptions may be nil.
func NewHandler(board *linking.Board, prefetch Prefetcher, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		board:    board,
		prefetch: prefetch,
		store:    s,
		webpush:  webpushOptions,
	}
}

func (h *Handler) engine() *linking.Engine {
	return h.board.Engine()
}

// writeError maps engine and remote errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	var remoteErr *remote.Error
	switch {
	case errors.Is(err, linking.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, linking.ErrDisplayUnresolved),
		errors.Is(err, linking.ErrQueueUnresolved),
		errors.Is(err, linking.ErrCompanyUnresolved),
		errors.Is(err, linking.ErrEmptyName),
		errors.Is(err, linking.ErrInvalidDisplayType):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, linking.ErrQueueNotConfirmed):
		status = http.StatusGatewayTimeout
	case errors.As(err, &remoteErr):
		status = http.StatusBadGateway
		if remoteErr.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
		message = remote.Message(err, remote.DefaultMessage)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		log.Printf("Error serving %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// companyQuery reads the optional company query parameter; 0 means absent.
func companyQuery(c *gin.Context) (int64, bool) {
	raw := c.Query("company")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid company"})
		return 0, false
	}
	return id, true
}

// card returns the mounted card for the display in the path, mounting it
// from the remote display when needed.
func (h *Handler) card(c *gin.Context) (*linking.Card, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	if card, found := h.board.Lookup(id); found {
		return card, true
	}
	display, err := h.engine().Display(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	card, err := h.board.Card(c.Request.Context(), display)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return card, true
}
