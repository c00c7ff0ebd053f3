package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request with method, path, status, size,
// and latency.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		log.Infof("REQUEST: %s %s | Query: %s | Remote: %s",
			c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery, c.ClientIP())

		c.Next()

		log.Infof("RESPONSE: %s %s | Status: %d | Size: %d bytes | %d ms",
			c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), c.Writer.Size(),
			time.Since(start).Milliseconds())
	}
}
