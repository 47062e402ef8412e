package mw

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kds-display-backend/internal/metrics"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id when the caller sent none, logs one
// line per request and records request metrics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		metrics.ObserveRequest(c.Request.Method, route, status, duration.Seconds())
		log.Printf("request method=%s path=%s status=%d duration_ms=%d request_id=%s",
			c.Request.Method, c.Request.URL.Path, status, duration.Milliseconds(), requestID)
	}
}
