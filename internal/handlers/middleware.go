package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
	maxRequestIDLen = 64
)

// requestIDMiddleware keeps a caller-supplied X-Request-ID or assigns a new one.
func (h *Handler) requestIDMiddleware(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" || len(id) > maxRequestIDLen {
		id = uuid.NewString()
	}

	// store in Gin context
	c.Set(requestIDKey, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

// accessLogMiddleware logs one line per API request.
func (h *Handler) accessLogMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()

	if h.log == nil {
		return
	}
	h.log.Debugw("http_request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"latency_ms", time.Since(start).Milliseconds(),
		"request_id", c.GetString(requestIDKey),
	)
}
