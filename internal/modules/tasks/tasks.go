// Package tasks exposes the background job scheduler to the admin.
package tasks

import (
	"net/http"

	"github.com/efraim-memorial/backend/internal/pkg/cron"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	sched *cron.Scheduler
}

func NewHandler(sched *cron.Scheduler) *Handler { return &Handler{sched: sched} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/cron-task", adminMW)
	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.POST("/:name/run", h.run)
}

// GET /cron-task
func (h *Handler) list(c *gin.Context) {
	response.List(c, h.sched.List())
}

// GET /cron-task/:name
func (h *Handler) get(c *gin.Context) {
	info, err := h.sched.Get(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, "Task not found")
		return
	}
	response.OK(c, info)
}

// POST /cron-task/:name/run
func (h *Handler) run(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, "Task not found")
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"message": "Task triggered"})
}
