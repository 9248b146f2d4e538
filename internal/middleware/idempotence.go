package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/pkg/response"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
	idempotencePrefix = "insight:idempotence:"
)

// KV is the subset of the shared key-value store the write guards use.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Idempotence rejects a write that repeats one still in flight, or one that
// succeeded within the last minute, with 409. Requests are keyed by the
// x-idempotence header, or else by a hash of the request.
func Idempotence(kv KV) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		redisKey := idempotencePrefix + key
		ctx := c.Request.Context()

		acquired, err := kv.SetNX(ctx, redisKey, "0", idempotenceTTL)
		if err != nil {
			c.Next()
			return
		}
		if !acquired {
			msg := "identical request already succeeded, retry after 60 seconds"
			if val, _ := kv.Get(ctx, redisKey); val == "0" {
				msg = "identical request is still being processed"
			}
			response.Conflict(c, msg)
			return
		}

		c.Next()

		// The request context may be done once the handler returns.
		ctx = context.WithoutCancel(ctx)
		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			_ = kv.Set(ctx, redisKey, "1", idempotenceTTL)
		} else {
			_ = kv.Del(ctx, redisKey)
		}
	}
}

// resolveIdempotenceKey returns the idempotence key for the current request.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return hdr, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	ua := c.Request.UserAgent()
	ip := c.ClientIP()
	authToken := NormalizeToken(c.GetHeader("Authorization"))

	if len(body) == 0 && ua == "" && ip == "" && authToken == "" {
		return "", nil
	}

	raw := c.Request.Method + "|" + c.Request.URL.String() + "|" + string(body) + "|" + ua + "|" + ip + "|" + authToken
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
