package middleware

import (
	"time"

	"coursebridge/internal/logger"

	"github.com/gin-gonic/gin"
)

// Logger writes one line per request through the application logger.
func Logger(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("[%s] %s %s %d %s %s",
			c.GetString(RequestIDKey),
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}
