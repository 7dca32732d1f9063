// Package ktav serves the written pieces ("ktavim") section.
package ktav

import (
	"net/http"
	"strings"

	"github.com/efraim-memorial/backend/internal/middleware"
	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/modules/content/moderated"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/pkg/markdown"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"github.com/gin-gonic/gin"
)

var Files = filestore.Files{Pending: "pending-ktavim.json", Approved: "ktavim.json"}

var (
	FieldTitle   = store.Field[*models.Ktav]{Column: "title", Value: func(k *models.Ktav) string { return k.Title }}
	FieldContent = store.Field[*models.Ktav]{Column: "content", Value: func(k *models.Ktav) string { return k.Content }}
)

func New() *models.Ktav { return &models.Ktav{} }

func Kind() moderation.Kind[*models.Ktav] {
	return moderation.Kind[*models.Ktav]{
		Name:     "ktav",
		New:      New,
		Validate: validate,
		Merge: func(dst, src *models.Ktav) {
			dst.Title = src.Title
			dst.Content = src.Content
		},
		Search: []store.Field[*models.Ktav]{FieldTitle, FieldContent},
		Policy: moderation.Review,
	}
}

func validate(k *models.Ktav) error {
	var missing []string
	if strings.TrimSpace(k.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(k.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	return nil
}

type KtavDTO struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func fromDTO(d KtavDTO) *models.Ktav {
	return &models.Ktav{Title: strings.TrimSpace(d.Title), Content: d.Content}
}

type htmlResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

type Handler struct {
	actions *moderated.Actions[*models.Ktav]
	guards  []gin.HandlerFunc
}

func NewHandler(wf *moderation.Workflow[*models.Ktav], guards ...gin.HandlerFunc) *Handler {
	return &Handler{actions: moderated.New(wf), guards: guards}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	bind := moderated.BindJSON(fromDTO)

	g := rg.Group("/ktavim")
	g.GET("", h.actions.List(store.Approved))
	g.GET("/:id", h.actions.Get(store.Approved, "id"))
	g.GET("/:id/html", h.html)
	g.POST("", moderated.Chain(h.guards, h.create)...)

	a := g.Group("", adminMW)
	a.GET("/pending", h.actions.List(store.Pending))
	a.POST("/approve/:id", h.actions.Approve("id"))
	a.POST("/edit/:id", h.actions.Edit("id", bind))
	a.POST("/delete/:id", h.actions.Delete(store.Pending, "id"))
	a.DELETE("/:id", h.actions.Delete(store.Approved, "id"))
}

// POST /ktavim
// Admin submissions are published directly, others are queued.
func (h *Handler) create(c *gin.Context) {
	var dto KtavDTO
	if err := moderated.DecodeJSON(c, &dto); err != nil {
		response.Error(c, err)
		return
	}

	state := store.Pending
	message := "Ktav submitted and pending approval"
	if middleware.IsAdmin(c) {
		state = store.Approved
		message = "Ktav published"
	}
	if _, err := h.actions.Workflow().SubmitAs(c.Request.Context(), state, fromDTO(dto)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"message": message, "approved": state == store.Approved})
}

// GET /ktavim/:id/html
func (h *Handler) html(c *gin.Context) {
	id, ok := moderated.Handle(c, "id")
	if !ok {
		return
	}
	k, err := h.actions.Workflow().Get(c.Request.Context(), store.Approved, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, htmlResponse{ID: k.ID, Title: k.Title, HTML: markdown.Render(k.Content)})
}
