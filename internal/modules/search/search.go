// Package search looks up a query across ktavim, memories and videos at once.
package search

import (
	"context"
	"strings"

	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Searcher is the part of a moderation workflow the aggregator needs.
type Searcher[T any] interface {
	Search(ctx context.Context, state store.State, query string, matches ...store.Match[T]) ([]T, error)
}

// Result keeps each kind in its store's default order.
type Result struct {
	Ktavim   []*models.Ktav   `json:"ktavim"`
	Memories []*models.Memory `json:"memories"`
	Videos   []*models.Video  `json:"videos"`
}

func emptyResult() *Result {
	return &Result{
		Ktavim:   []*models.Ktav{},
		Memories: []*models.Memory{},
		Videos:   []*models.Video{},
	}
}

type Service struct {
	ktavim   Searcher[*models.Ktav]
	memories Searcher[*models.Memory]
	videos   Searcher[*models.Video]
	logger   *zap.Logger
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("SearchService")
		}
	}
}

func NewService(ktavim Searcher[*models.Ktav], memories Searcher[*models.Memory], videos Searcher[*models.Video], opts ...Option) *Service {
	s := &Service{ktavim: ktavim, memories: memories, videos: videos, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search matches query against approved ktavim and memories and against videos in
// either list, approved first. A blank query returns three empty lists without reading storage.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	out := emptyResult()
	query = strings.TrimSpace(query)
	if query == "" {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.ktavim.Search(gctx, store.Approved, query)
		if err == nil && items != nil {
			out.Ktavim = items
		}
		return err
	})
	g.Go(func() error {
		items, err := s.memories.Search(gctx, store.Approved, query)
		if err == nil && items != nil {
			out.Memories = items
		}
		return err
	})
	g.Go(func() error {
		var all []*models.Video
		for _, state := range []store.State{store.Approved, store.Pending} {
			items, err := s.videos.Search(gctx, state, query)
			if err != nil {
				return err
			}
			all = append(all, items...)
		}
		if all != nil {
			out.Videos = all
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	return out, nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
}

// GET /search?q=
func (h *Handler) search(c *gin.Context) {
	res, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
