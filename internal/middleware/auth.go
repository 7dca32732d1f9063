package middleware

import (
	"strings"

	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/efraim-memorial/backend/internal/pkg/session"
	"github.com/gin-gonic/gin"
)

const (
	ContextKeySession = "admin_session"
	CookieName        = "memorial_session"
)

// Session resolves the caller's admin session, if any, and stores it on the context.
// It never blocks the request.
func Session(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := ExtractToken(c); token != "" {
			if s, err := m.Resolve(c.Request.Context(), token); err == nil {
				c.Set(ContextKeySession, s)
			}
		}
		c.Next()
	}
}

// Admin rejects callers without an admin session with 403 before any handler runs.
func Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session resolved for this request, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

func IsAdmin(c *gin.Context) bool {
	s := CurrentSession(c)
	return s != nil && s.Admin
}

// ExtractToken reads the session token from the Authorization header or the session cookie.
func ExtractToken(c *gin.Context) string {
	if auth := NormalizeToken(c.GetHeader("Authorization")); auth != "" {
		return auth
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
