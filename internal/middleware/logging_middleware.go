// Package middleware holds gin middleware shared by every HTTP route the
// presence fabric serves.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"presencefabric/pkg/logger"
)

// Logging logs method, path, status, and latency for every request,
// including the websocket upgrade (whose logged status is always the 101
// or error returned by the upgrader, not the lifetime of the connection).
func Logging(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log != nil {
			log.WithContext(c.Request.Context()).Sugar().Infof("%s %s %d %s", method, path, status, latency.String())
		}
	}
}
