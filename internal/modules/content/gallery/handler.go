package gallery

import (
	"errors"
	"net/http"
	"strings"

	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/modules/content/moderated"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/gin-gonic/gin"
)

type EditDTO struct {
	Caption  string `json:"caption"`
	Uploader string `json:"uploader"`
}

type Handler struct {
	svc     *Service
	actions *moderated.Actions[*models.GalleryItem]
	guards  []gin.HandlerFunc
}

func NewHandler(svc *Service, guards ...gin.HandlerFunc) *Handler {
	return &Handler{svc: svc, actions: moderated.New(svc.Workflow()), guards: guards}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	bind := moderated.BindJSON(func(d EditDTO) *models.GalleryItem {
		return &models.GalleryItem{Caption: strings.TrimSpace(d.Caption), Uploader: d.Uploader}
	})

	g := rg.Group("/gallery")
	g.POST("", moderated.Chain(h.guards, h.upload)...)
	g.GET("/approved", h.actions.List(store.Approved))

	a := g.Group("", adminMW)
	a.GET("/pending", h.actions.List(store.Pending))
	a.POST("/approve/:index", h.actions.Approve("index"))
	a.POST("/edit/:index", h.actions.Edit("index", bind))
	a.POST("/delete/:index", h.actions.Delete(store.Pending, "index"))
	a.POST("/delete-approved/:index", h.actions.Delete(store.Approved, "index"))
}

// POST /gallery (multipart: image, caption, uploader)
func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("image")
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		response.BadRequest(c, "Invalid multipart body")
		return
	}
	item, err := h.svc.Ingest(c.Request.Context(), fh, c.PostForm("caption"), c.PostForm("uploader"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Uploaded and pending approval.", "item": item})
}
