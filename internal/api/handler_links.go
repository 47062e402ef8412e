package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kds-display-backend/internal/model"
)

type linkRequest struct {
	// Queue is a queue object or any reference to one.
	Queue any `json:"queue" binding:"required"`
}

// LinkQueue handles POST /api/displays/:id/links.
func (h *Handler) LinkQueue(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	queue, _ := model.QueueFrom(req.Queue)

	card, ok := h.card(c)
	if !ok {
		return
	}
	out, err := card.Link(c.Request.Context(), queue)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type createQueueRequest struct {
	Name      string `json:"name" binding:"required"`
	CompanyID int64  `json:"companyId"`
}

// CreateQueue handles POST /api/displays/:id/queues: create a queue and link it.
func (h *Handler) CreateQueue(c *gin.Context) {
	var req createQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	card, ok := h.card(c)
	if !ok {
		return
	}
	out, err := card.CreateQueueAndBind(c.Request.Context(), req.CompanyID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// UnlinkQueue handles DELETE /api/displays/:id/links[/:queueId]. Without a
// queue id the display's first link is removed.
func (h *Handler) UnlinkQueue(c *gin.Context) {
	var queueID int64
	if raw := c.Param("queueId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid queueId"})
			return
		}
		queueID = id
	}
	card, ok := h.card(c)
	if !ok {
		return
	}
	res, err := card.Unlink(c.Request.Context(), queueID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
