package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	pkgredis "github.com/efraim-memorial/backend/internal/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader    = "X-Idempotency-Key"
	idempotencyKeyPrefix = "memorial:idempotence:"
	idempotencyMaxBody   = 64 << 10

	idempotencyPending = "0"
	idempotencyDone    = "1"
)

// Idempotence rejects a repeated submission with 409 while the first copy is in flight
// and for ttl after it succeeded. A copy is identified by the X-Idempotency-Key header
// or, without one, by the client IP, path and body. Failed requests free the key.
func Idempotence(rc *pkgredis.Client, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if rc == nil || ttl <= 0 || c.Request.Method == http.MethodGet || IsAdmin(c) {
			c.Next()
			return
		}
		key, ok := idempotenceKey(c)
		if !ok {
			c.Next()
			return
		}
		key = idempotencyKeyPrefix + key
		ctx := c.Request.Context()

		fresh, err := rc.SetNX(ctx, key, idempotencyPending, ttl)
		if err != nil {
			log.Warn("idempotence check failed", zap.Error(err))
			c.Next()
			return
		}
		if !fresh {
			msg := "Duplicate submission, please wait before sending it again"
			if v, _ := rc.Get(ctx, key); v == idempotencyPending {
				msg = "The same submission is still being processed"
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"ok": 0, "code": http.StatusConflict, "error": msg})
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			_ = rc.Set(ctx, key, idempotencyDone, ttl)
		} else {
			_ = rc.Del(ctx, key)
		}
	}
}

func idempotenceKey(c *gin.Context) (string, bool) {
	if hdr := c.GetHeader(IdempotencyHeader); hdr != "" {
		return hdr, true
	}
	if c.Request.ContentLength > idempotencyMaxBody {
		return "", false
	}
	rest := c.Request.Body
	body, err := io.ReadAll(io.LimitReader(rest, idempotencyMaxBody+1))
	c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(body), rest), rest}
	if err != nil || len(body) > idempotencyMaxBody {
		return "", false
	}

	h := sha256.New()
	for _, part := range []string{c.Request.Method, c.Request.URL.Path, c.ClientIP(), string(body)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), true
}

type readCloser struct {
	io.Reader
	io.Closer
}
