package backup

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

var (
	errInvalidName   = errors.New("invalid filename")
	errUnknownFormat = errors.New("not a memorial backup archive")
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/backups", adminMW)
	g.GET("", h.list)
	g.GET("/new", h.createAndDownload)
	g.GET("/:filename", h.download)
	g.GET("/:filename/summary", h.summary)
	g.DELETE("/:filename", h.remove)
}

// GET /backups
func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": items})
}

// GET /backups/new
func (h *Handler) createAndDownload(c *gin.Context) {
	filename, data, err := h.svc.Create(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	attach(c, filename, data)
}

// GET /backups/:filename
func (h *Handler) download(c *gin.Context) {
	data, err := h.svc.Open(c.Param("filename"))
	switch {
	case errors.Is(err, errInvalidName):
		response.BadRequest(c, err.Error())
		return
	case os.IsNotExist(err):
		response.NotFound(c)
		return
	case err != nil:
		response.InternalError(c, err)
		return
	}
	attach(c, c.Param("filename"), data)
}

// GET /backups/:filename/summary
func (h *Handler) summary(c *gin.Context) {
	out, err := h.svc.Inspect(c.Param("filename"))
	switch {
	case errors.Is(err, errInvalidName), errors.Is(err, errUnknownFormat):
		response.BadRequest(c, err.Error())
		return
	case os.IsNotExist(err):
		response.NotFound(c)
		return
	case err != nil:
		response.InternalError(c, err)
		return
	}
	response.OK(c, out)
}

// DELETE /backups/:filename
func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Remove(c.Param("filename")); err != nil {
		if errors.Is(err, errInvalidName) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil)
}

func attach(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", data)
}
