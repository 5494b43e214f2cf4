package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/slidehub/ai-service/internal/pkg/response"
	"go.uber.org/zap"
)

// RateLimit returns a middleware that allows max requests per client IP in
// each fixed window. Redis errors let the request through.
func RateLimit(rdb *redis.Client, max int64, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		bucket := time.Now().UnixMilli() / window.Milliseconds()
		key := fmt.Sprintf("slidehub:rate_limit:%s:%d", ip, bucket)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		if count == 1 {
			rdb.PExpire(ctx, key, window+time.Second)
		}

		if count > max {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}
