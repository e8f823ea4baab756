package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

const errorCodeKey = "error_code"

// RequestLogger logs incoming requests and their responses
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}
		if code := c.GetString(errorCodeKey); code != "" {
			attrs = append(attrs, "error_code", code)
		}

		// c.Request carries the customer set by the auth middleware
		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Error(ctx, "request completed", attrs...)
		case status >= 400:
			logger.Warn(ctx, "request completed", attrs...)
		default:
			logger.Info(ctx, "request completed", attrs...)
		}
	}
}

// SetErrorCode records the application error code for the access log.
func SetErrorCode(c *gin.Context, code string) {
	c.Set(errorCodeKey, code)
}
