package middleware

import (
	"fmt"
	"net/http"
	"time"

	pkgredis "github.com/efraim-memorial/backend/internal/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit caps public submissions per client IP to max requests per window.
// A nil client disables the limit; Redis errors let the request through.
func RateLimit(rc *pkgredis.Client, max int64, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if rc == nil || max <= 0 || IsAdmin(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		bucket := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("memorial:rate_limit:%s:%s:%d", c.FullPath(), ip, bucket)
		count, err := rc.IncrWindow(c.Request.Context(), key, window+time.Second)
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		if count > max {
			log.Info("rate limited", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":    0,
				"code":  http.StatusTooManyRequests,
				"error": "Too many requests, please slow down",
			})
			return
		}

		c.Next()
	}
}
