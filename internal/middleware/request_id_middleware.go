package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"presencefabric/pkg/logger"
)

// RequestID assigns each HTTP request a correlation id, echoed back on
// X-Request-Id and attached to the request's context under
// logger.SessionIDKey so handler-level log lines carry it. It reuses the
// same key a websocket session's logs are tagged with, since both name the
// same kind of per-connection correlation id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-Id", requestID)
		ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ServerID attaches this process's server id to every request's context
// under logger.ServerIDKey, so every log line the request produces is
// tagged with which server handled it, the same way RequestID tags which
// request produced it.
func ServerID(serverID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), logger.ServerIDKey, serverID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
