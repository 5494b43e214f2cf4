package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/slidehub/ai-service/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	IdempotenceHeader = "X-Idempotency-Key"
	idempotenceTTL    = 10 * time.Minute
)

// Idempotence rejects a POST while an identical one is still being served.
// The key is the X-Idempotency-Key header, or a hash of the method, URL, body
// and client IP. It is released when the request finishes, so a completed
// generation can be repeated.
func Idempotence(rdb *redis.Client, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		redisKey := fmt.Sprintf("slidehub:idempotence:%s", key)
		ctx := c.Request.Context()

		acquired, err := rdb.SetNX(ctx, redisKey, "1", idempotenceTTL).Result()
		if err != nil {
			log.Warn("idempotence check failed", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			response.Conflict(c, "an identical request is still being processed")
			return
		}
		defer rdb.Del(context.WithoutCancel(ctx), redisKey)

		c.Next()
	}
}

// resolveIdempotenceKey returns the idempotence key for the current request.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(IdempotenceHeader); hdr != "" {
		return hdr, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	ip := c.ClientIP()
	if len(body) == 0 && ip == "" {
		return "", nil
	}

	raw := c.Request.Method + "|" + c.Request.URL.String() + "|" + string(body) + "|" + ip
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
