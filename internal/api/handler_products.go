package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kds-display-backend/internal/model"
)

// GetQueueProducts handles GET /api/queues/:id/products?company={id}.
// With available=true it lists unrouted products instead, filtered by search.
func (h *Handler) GetQueueProducts(c *gin.Context) {
	queueID, ok := idParam(c, "id")
	if !ok {
		return
	}
	companyID, ok := companyQuery(c)
	if !ok {
		return
	}

	var products []model.Product
	var err error
	if c.Query("available") == "true" {
		products, err = h.engine().AvailableProducts(c.Request.Context(), companyID, c.Query("search"))
	} else {
		products, err = h.engine().QueueProducts(c.Request.Context(), companyID, queueID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// AssignProduct handles PUT /api/queues/:id/products/:productId.
func (h *Handler) AssignProduct(c *gin.Context) {
	queueID, ok := idParam(c, "id")
	if !ok {
		return
	}
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}
	if err := h.engine().AssignProduct(c.Request.Context(), productID, queueID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnassignProduct handles DELETE /api/queues/:id/products/:productId.
func (h *Handler) UnassignProduct(c *gin.Context) {
	if _, ok := idParam(c, "id"); !ok {
		return
	}
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}
	if err := h.engine().UnassignProduct(c.Request.Context(), productID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
