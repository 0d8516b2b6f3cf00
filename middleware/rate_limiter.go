package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimiter 创建一个基于Redis的限流中间件，按客户端IP每分钟计数
func RateLimiter(rdb *redis.Client, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "studygroup:rate_limit:" + c.ClientIP()
		handleRateLimit(c, rdb, key, perMinute, time.Minute)
	}
}

// handleRateLimit 处理限流逻辑
func handleRateLimit(c *gin.Context, rdb *redis.Client, key string, limit int, window time.Duration) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		// Redis 不可用时放行请求
		slog.Warn("限流计数失败", "key", key, "error", err)
		c.Next()
		return
	}
	count := incr.Val()

	// 计数键没有过期时间时补上，包括之前 EXPIRE 失败的情况
	if ttl.Val() < 0 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			slog.Warn("设置限流窗口失败", "key", key, "error", err)
		}
	}

	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

	if count > int64(limit) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "请求过于频繁，请稍后再试",
		})
		return
	}

	c.Next()
}
