// Package memory serves visitor-submitted memories and their moderation queue.
package memory

import (
	"strings"

	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/modules/content/moderated"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"github.com/gin-gonic/gin"
)

var Files = filestore.Files{Pending: "pendingMemories.json", Approved: "approvedMemories.json"}

var (
	FieldName    = store.Field[*models.Memory]{Column: "name", Value: func(m *models.Memory) string { return m.Name }}
	FieldMessage = store.Field[*models.Memory]{Column: "message", Value: func(m *models.Memory) string { return m.Message }}
)

func New() *models.Memory { return &models.Memory{} }

func Kind() moderation.Kind[*models.Memory] {
	return moderation.Kind[*models.Memory]{
		Name:     "memory",
		New:      New,
		Validate: validate,
		Merge: func(dst, src *models.Memory) {
			dst.Name = src.Name
			dst.Message = src.Message
		},
		Search: []store.Field[*models.Memory]{FieldName, FieldMessage},
		Policy: moderation.Review,
	}
}

func validate(m *models.Memory) error {
	var missing []string
	if strings.TrimSpace(m.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(m.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	return nil
}

type MemoryDTO struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func fromDTO(d MemoryDTO) *models.Memory {
	return &models.Memory{Name: strings.TrimSpace(d.Name), Message: strings.TrimSpace(d.Message)}
}

type Handler struct {
	actions *moderated.Actions[*models.Memory]
	guards  []gin.HandlerFunc
}

// NewHandler serves wf. guards run in front of the public submission route; nil ones are skipped.
func NewHandler(wf *moderation.Workflow[*models.Memory], guards ...gin.HandlerFunc) *Handler {
	return &Handler{actions: moderated.New(wf), guards: guards}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	bind := moderated.BindJSON(fromDTO)

	g := rg.Group("/memories")
	g.POST("", moderated.Chain(h.guards, h.actions.Submit(bind, "Memory submitted and pending approval"))...)
	g.GET("", h.actions.List(store.Approved))
	g.GET("/approved", h.actions.List(store.Approved))

	a := g.Group("", adminMW)
	a.GET("/pending", h.actions.List(store.Pending))
	a.POST("/approve/:id", h.actions.Approve("id"))
	a.POST("/edit/:id", h.actions.Edit("id", bind))
	a.POST("/delete/:id", h.actions.Delete(store.Pending, "id"))
	a.POST("/delete-approved/:id", h.actions.Delete(store.Approved, "id"))

	// Routes used by the first admin dashboard.
	legacy := rg.Group("", adminMW)
	legacy.GET("/pending", h.actions.List(store.Pending))
	legacy.POST("/approve/:index", h.actions.Approve("index"))
	legacy.POST("/edit/:index", h.actions.Edit("index", bind))
	legacy.POST("/delete/:index", h.actions.Delete(store.Pending, "index"))
	legacy.POST("/delete-approved/:index", h.actions.Delete(store.Approved, "index"))
}
