// Package staticgallery manages the six fixed gallery slots edited by the admin.
package staticgallery

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/efraim-memorial/backend/internal/media"
	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	FirstSlot = 1
	LastSlot  = 6
	File      = "static-gallery.json"
)

type Service struct {
	slots  store.SlotStore
	host   media.Host
	folder string
	limit  int64
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("StaticGallery")
		}
	}
}

func NewService(slots store.SlotStore, host media.Host, folder string, limit int64, opts ...Option) *Service {
	s := &Service{slots: slots, host: host, folder: folder, limit: limit, now: time.Now, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]models.StaticSlot, error) {
	return s.slots.List(ctx)
}

// ParseSlot reads a slot number in 1..6.
func ParseSlot(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < FirstSlot || n > LastSlot {
		return 0, apperr.InvalidIndex(raw)
	}
	return n, nil
}

// Replace uploads fh into slot and releases the media of the previous occupant.
func (s *Service) Replace(ctx context.Context, slot int, fh *multipart.FileHeader, caption, uploader string) (*models.StaticSlot, error) {
	if slot < FirstSlot || slot > LastSlot {
		return nil, apperr.InvalidIndex(strconv.Itoa(slot))
	}
	obj, err := media.Prepare(fh, s.limit, s.folder, s.now())
	if err != nil {
		return nil, err
	}
	asset, err := s.host.Upload(ctx, obj)
	if err != nil {
		s.logger.Error("media upload failed", zap.Int("slot", slot), zap.Error(err))
		return nil, err
	}
	next := models.StaticSlot{
		Slot:     slot,
		URL:      asset.URL,
		PublicID: asset.PublicID,
		Caption:  strings.TrimSpace(caption),
		Uploader: strings.TrimSpace(uploader),
	}
	prev, err := s.slots.Put(ctx, next)
	if err != nil {
		s.logger.Error("store static slot failed", zap.Int("slot", slot), zap.Error(err))
		if derr := s.host.Delete(ctx, asset.PublicID); derr != nil {
			s.logger.Warn("release orphaned upload failed", zap.String("public_id", asset.PublicID), zap.Error(derr))
		}
		return nil, err
	}
	if prev != nil && prev.PublicID != "" && prev.PublicID != asset.PublicID {
		if err := s.host.Delete(ctx, prev.PublicID); err != nil {
			s.logger.Warn("release previous slot media failed", zap.Int("slot", slot), zap.String("public_id", prev.PublicID), zap.Error(err))
		}
	}
	next.UpdatedAt = s.now()
	s.logger.Info("static slot replaced", zap.Int("slot", slot), zap.String("public_id", asset.PublicID))
	return &next, nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/static-gallery")
	g.GET("", h.list)
	g.POST("/:index", adminMW, h.replace)
}

// GET /static-gallery
func (h *Handler) list(c *gin.Context) {
	slots, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, slots)
}

// POST /static-gallery/:index (multipart: image, caption, uploader)
func (h *Handler) replace(c *gin.Context) {
	slot, err := ParseSlot(c.Param("index"))
	if err != nil {
		response.Error(c, err)
		return
	}
	fh, err := c.FormFile("image")
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		response.BadRequest(c, "Invalid multipart body")
		return
	}
	out, err := h.svc.Replace(c.Request.Context(), slot, fh, c.PostForm("caption"), c.PostForm("uploader"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Static gallery slot updated", "slot": out})
}
