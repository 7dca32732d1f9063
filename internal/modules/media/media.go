// Package media reports the storage usage of the configured media host.
package media

import (
	mediahost "github.com/efraim-memorial/backend/internal/media"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	host   mediahost.Host
	logger *zap.Logger
}

func NewHandler(host mediahost.Host, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{host: host, logger: logger.Named("MediaUsage")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	rg.GET("/media/usage", adminMW, h.usage)
	rg.GET("/cloudinary/usage", adminMW, h.usage)
}

// GET /media/usage
func (h *Handler) usage(c *gin.Context) {
	reporter, ok := h.host.(mediahost.UsageReporter)
	if !ok {
		response.Error(c, mediahost.ErrUsageUnsupported)
		return
	}
	report, err := reporter.Usage(c.Request.Context())
	if err != nil {
		h.logger.Error("usage report failed", zap.String("provider", h.host.Name()), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
