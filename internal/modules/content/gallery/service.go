// Package gallery ingests visitor photo uploads into the gallery moderation queue.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"strings"
	"time"

	"github.com/efraim-memorial/backend/internal/media"
	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"go.uber.org/zap"
)

// DefaultUploader is stored when the visitor leaves the uploader field empty ("unknown").
const DefaultUploader = "לא ידוע"

var Files = filestore.Files{Pending: "pending-gallery.json", Approved: "gallery.json"}

var (
	FieldCaption  = store.Field[*models.GalleryItem]{Column: "caption", Value: func(g *models.GalleryItem) string { return g.Caption }}
	FieldUploader = store.Field[*models.GalleryItem]{Column: "uploader", Value: func(g *models.GalleryItem) string { return g.Uploader }}
)

func New() *models.GalleryItem { return &models.GalleryItem{} }

func Kind() moderation.Kind[*models.GalleryItem] {
	return moderation.Kind[*models.GalleryItem]{
		Name: "gallery",
		New:  New,
		Validate: func(g *models.GalleryItem) error {
			if strings.TrimSpace(g.URL) == "" {
				return apperr.MissingFields("url")
			}
			return nil
		},
		Merge: func(dst, src *models.GalleryItem) {
			dst.Caption = src.Caption
			dst.Uploader = uploaderOrDefault(src.Uploader)
		},
		Search: []store.Field[*models.GalleryItem]{FieldCaption, FieldUploader},
		Policy: moderation.Review,
	}
}

func uploaderOrDefault(u string) string {
	if u = strings.TrimSpace(u); u != "" {
		return u
	}
	return DefaultUploader
}

// Releaser deletes the media behind a removed gallery item: the hosted asset when the
// item has a public id, otherwise the legacy file under legacyDir.
func Releaser(host media.Host, legacyDir string) moderation.ReleaseFunc[*models.GalleryItem] {
	return func(ctx context.Context, item *models.GalleryItem) error {
		if item.PublicID != "" {
			if host == nil {
				return errors.New("no media host configured")
			}
			return host.Delete(ctx, item.PublicID)
		}
		if item.Filename == "" {
			return nil
		}
		folder := "pending-gallery"
		if item.Approved {
			folder = "gallery"
		}
		target, err := media.ResolveWithin(legacyDir, path.Join(folder, path.Base(item.Filename)))
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove legacy file: %w", err)
		}
		return nil
	}
}

// Service turns uploads into pending gallery items.
type Service struct {
	wf     *moderation.Workflow[*models.GalleryItem]
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
			s.logger = l.Named("Gallery")
		}
	}
}

func NewService(wf *moderation.Workflow[*models.GalleryItem], host media.Host, folder string, limit int64, opts ...Option) *Service {
	s := &Service{wf: wf, host: host, folder: folder, limit: limit, now: time.Now, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Workflow() *moderation.Workflow[*models.GalleryItem] { return s.wf }

// Ingest validates the upload, stores it on the media host and queues it for approval.
// Rejected uploads never reach the host or the store.
func (s *Service) Ingest(ctx context.Context, fh *multipart.FileHeader, caption, uploader string) (*models.GalleryItem, error) {
	obj, err := media.Prepare(fh, s.limit, s.folder, s.now())
	if err != nil {
		return nil, err
	}
	asset, err := s.host.Upload(ctx, obj)
	if err != nil {
		s.logger.Error("media upload failed", zap.String("key", obj.Key), zap.Error(err))
		return nil, err
	}
	item := &models.GalleryItem{
		URL:      asset.URL,
		PublicID: asset.PublicID,
		Caption:  strings.TrimSpace(caption),
		Uploader: uploaderOrDefault(uploader),
	}
	created, err := s.wf.SubmitAs(ctx, store.Pending, item)
	if err != nil {
		if derr := s.host.Delete(ctx, asset.PublicID); derr != nil {
			s.logger.Warn("orphaned media after failed submit", zap.String("public_id", asset.PublicID), zap.Error(derr))
		}
		return nil, err
	}
	s.logger.Info("gallery upload queued",
		zap.String("public_id", asset.PublicID),
		zap.Int64("bytes", obj.Size()),
		zap.String("content_type", obj.ContentType),
	)
	return created, nil
}
