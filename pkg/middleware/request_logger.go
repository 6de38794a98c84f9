package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postboard/postboard/backend/go-services/pkg/logger"
)

// RequestLogger writes one structured access-log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		latency := float64(time.Since(start).Microseconds()) / 1000
		logger.Request(c.Request.Method, path, c.Writer.Status(), latency, c.ClientIP())
	}
}
