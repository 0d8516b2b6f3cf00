package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 请求ID响应头
const RequestIDHeader = "X-Request-ID"

// RequestLogger 为每个请求分配ID并记录访问日志
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if caller, ok := CallerFromContext(c); ok {
			attrs = append(attrs, "principal", caller)
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("请求处理失败", attrs...)
		case c.Writer.Status() >= 400:
			log.Warn("请求被拒绝", attrs...)
		default:
			log.Info("请求完成", attrs...)
		}
	}
}
