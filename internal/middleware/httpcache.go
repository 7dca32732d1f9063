package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgredis "github.com/efraim-memorial/backend/internal/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CachePrefix         = "memorial:http_cache:"
	CacheHeader         = "X-Cache"
	defaultCacheMaxBody = 1 << 20
)

type HTTPCacheOptions struct {
	TTL time.Duration
	// SkipPaths are exact paths, or prefixes when they end in *.
	SkipPaths    []string
	MaxBodyBytes int
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body     []byte
	max      int
	overflow bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow {
		return
	}
	if len(w.body)+len(data) > w.max {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache serves anonymous GET responses from Redis for opts.TTL. Admin requests
// bypass the cache and are marked private. Any successful write request purges the
// whole cache so moderation changes show up immediately.
func HTTPCache(rc *pkgredis.Client, opts HTTPCacheOptions, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultCacheMaxBody
	}
	return func(c *gin.Context) {
		if rc == nil || opts.TTL <= 0 || skipCachePath(c.Request.URL.Path, opts.SkipPaths) {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			if status := c.Writer.Status(); status >= 200 && status < 300 {
				if _, err := PurgeHTTPCache(ctx, rc); err != nil {
					log.Warn("purge http cache failed", zap.Error(err))
				}
			}
			return
		}

		if IsAdmin(c) {
			c.Header("Cache-Control", "private, no-store")
			c.Next()
			return
		}

		key := CachePrefix + c.Request.URL.RequestURI()
		if hit, ok := readCached(ctx, rc, key); ok {
			c.Header(CacheHeader, "hit")
			c.Header("Cache-Control", maxAge(opts.TTL))
			c.Data(hit.Status, hit.ContentType, hit.Body)
			c.Abort()
			return
		}

		buf := &cacheBodyWriter{ResponseWriter: c.Writer, max: opts.MaxBodyBytes}
		c.Writer = buf
		c.Header(CacheHeader, "miss")
		c.Next()

		if c.Writer.Status() != http.StatusOK || buf.overflow || len(buf.body) == 0 {
			return
		}
		if cc := strings.ToLower(c.Writer.Header().Get("Cache-Control")); strings.Contains(cc, "no-store") {
			return
		}
		raw, err := json.Marshal(cachedResponse{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        buf.body,
		})
		if err != nil {
			return
		}
		if err := rc.Set(ctx, key, raw, opts.TTL); err != nil {
			log.Warn("store http cache failed", zap.Error(err))
		}
	}
}

// PurgeHTTPCache drops every cached response.
func PurgeHTTPCache(ctx context.Context, rc *pkgredis.Client) (int64, error) {
	if rc == nil {
		return 0, nil
	}
	return rc.DelPrefix(ctx, CachePrefix)
}

func readCached(ctx context.Context, rc *pkgredis.Client, key string) (cachedResponse, bool) {
	raw, err := rc.GetBytes(ctx, key)
	if err != nil || len(raw) == 0 {
		return cachedResponse{}, false
	}
	var hit cachedResponse
	if err := json.Unmarshal(raw, &hit); err != nil {
		return cachedResponse{}, false
	}
	if hit.ContentType == "" {
		hit.ContentType = "application/json; charset=utf-8"
	}
	return hit, true
}

func skipCachePath(path string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func maxAge(ttl time.Duration) string {
	return "public, max-age=" + strconv.Itoa(int(ttl/time.Second))
}
