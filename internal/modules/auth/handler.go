package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/efraim-memorial/backend/internal/middleware"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Handler struct {
	svc          *Service
	cookieSecure bool
}

func NewHandler(svc *Service, cookieSecure bool) *Handler {
	return &Handler{svc: svc, cookieSecure: cookieSecure}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth", h.login)
	rg.POST("/logout", h.logout)
	rg.GET("/auth/check", h.check)
}

// POST /auth
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Missing username or password")
		return
	}
	token, sess, err := h.svc.Login(c.Request.Context(), dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			response.Unauthorized(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	h.setCookie(c, token, int(h.svc.SessionTTL().Seconds()))
	response.OK(c, loginResponse{Success: true, Token: token, ExpiresAt: sess.ExpiresAt})
}

// POST /logout
func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	h.setCookie(c, "", -1)
	response.Success(c, http.StatusOK, nil)
}

// GET /auth/check
func (h *Handler) check(c *gin.Context) {
	response.OK(c, gin.H{"admin": middleware.IsAdmin(c)})
}

func (h *Handler) setCookie(c *gin.Context, token string, maxAge int) {
	secure := h.cookieSecure || c.Request.TLS != nil
	if secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.CookieName, token, maxAge, "/", "", secure, true)
}
