package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kds-display-backend/internal/metrics"
	"kds-display-backend/internal/mw"
)

// NewRouter creates and configures the gin router. responseCache may be
// nil to disable GET caching.
func NewRouter(h *Handler, limiter *mw.IPRateLimiter, responseCache *mw.ResponseCache) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger())

	caching := func(c *gin.Context) { c.Next() }
	invalidate := func(c *gin.Context) { c.Next() }
	if responseCache != nil {
		caching = responseCache.Middleware()
		invalidate = responseCache.Invalidate()
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()}) })

	api := r.Group("/api")
	api.Use(limiter.Middleware())
	{
		api.GET("/displays", caching, h.ListDisplays)
		api.POST("/displays", invalidate, h.CreateDisplay)
		api.PUT("/displays/:id", invalidate, h.UpdateDisplay)
		api.DELETE("/displays/:id", invalidate, h.DeleteDisplay)

		api.GET("/displays/:id/queues", h.GetDisplayQueues)
		api.GET("/displays/:id/queue-options", h.GetQueueOptions)
		api.POST("/displays/:id/links", h.LinkQueue)
		api.POST("/displays/:id/queues", h.CreateQueue)
		api.DELETE("/displays/:id/links", h.UnlinkQueue)
		api.DELETE("/displays/:id/links/:queueId", h.UnlinkQueue)

		api.GET("/queues/:id/products", caching, h.GetQueueProducts)
		api.PUT("/queues/:id/products/:productId", invalidate, h.AssignProduct)
		api.DELETE("/queues/:id/products/:productId", invalidate, h.UnassignProduct)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
