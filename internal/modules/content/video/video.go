// Package video serves the YouTube links shown in the site's video sections.
package video

import (
	"strings"

	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/modules/content/moderated"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"github.com/gin-gonic/gin"
)

var Files = filestore.Files{Pending: "pending-videos.json", Approved: "videos.json"}

var (
	FieldTitle   = store.Field[*models.Video]{Column: "title", Value: func(v *models.Video) string { return v.Title }}
	FieldSection = store.Field[*models.Video]{Column: "section", Value: func(v *models.Video) string { return v.Section }}
)

func New() *models.Video { return &models.Video{} }

// Kind publishes videos on creation; only admins can add them.
func Kind() moderation.Kind[*models.Video] {
	return moderation.Kind[*models.Video]{
		Name:     "video",
		New:      New,
		Validate: validate,
		Merge: func(dst, src *models.Video) {
			dst.Title = src.Title
			dst.YoutubeID = src.YoutubeID
			dst.Section = src.Section
		},
		Search: []store.Field[*models.Video]{FieldTitle},
		Policy: moderation.AutoApprove,
	}
}

func validate(v *models.Video) error {
	var missing []string
	if strings.TrimSpace(v.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(v.YoutubeID) == "" {
		missing = append(missing, "youtubeId")
	}
	if strings.TrimSpace(v.Section) == "" {
		missing = append(missing, "section")
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	return nil
}

type VideoDTO struct {
	Title     string `json:"title"`
	YoutubeID string `json:"youtubeId"`
	Section   string `json:"section"`
}

func fromDTO(d VideoDTO) *models.Video {
	return &models.Video{
		Title:     strings.TrimSpace(d.Title),
		YoutubeID: strings.TrimSpace(d.YoutubeID),
		Section:   strings.TrimSpace(d.Section),
	}
}

type Handler struct {
	actions *moderated.Actions[*models.Video]
}

func NewHandler(wf *moderation.Workflow[*models.Video]) *Handler {
	return &Handler{actions: moderated.New(wf)}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/videos")
	g.GET("", h.list)

	a := g.Group("", adminMW)
	a.POST("", h.create)
	a.DELETE("/:id", h.actions.Delete(store.Approved, "id"))
}

// GET /videos?section=
func (h *Handler) list(c *gin.Context) {
	var matches []store.Match[*models.Video]
	if section := strings.TrimSpace(c.Query("section")); section != "" {
		matches = append(matches, store.Match[*models.Video]{Field: FieldSection, Value: section})
	}
	items, err := h.actions.Workflow().List(c.Request.Context(), store.Approved, matches...)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items)
}

// POST /videos
func (h *Handler) create(c *gin.Context) {
	var dto VideoDTO
	if err := moderated.DecodeJSON(c, &dto); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.actions.Workflow().Submit(c.Request.Context(), fromDTO(dto))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}
