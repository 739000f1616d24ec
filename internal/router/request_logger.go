package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// quietPaths are polled by monitoring and only logged when they fail.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLogger logs each API request with its route template, so that
// per-source and per-chart paths group together in the logs.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if quietPaths[path] && status < 400 {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		default:
			log.Debug("Request processed", fields...)
		}
	}
}
