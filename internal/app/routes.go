package app

import (
	"net/http"
	"time"

	"github.com/efraim-memorial/backend/internal/config"
	"github.com/efraim-memorial/backend/internal/media"
	"github.com/efraim-memorial/backend/internal/middleware"
	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/modules/auth"
	"github.com/efraim-memorial/backend/internal/modules/backup"
	"github.com/efraim-memorial/backend/internal/modules/content/gallery"
	"github.com/efraim-memorial/backend/internal/modules/content/ktav"
	"github.com/efraim-memorial/backend/internal/modules/content/memory"
	"github.com/efraim-memorial/backend/internal/modules/content/staticgallery"
	"github.com/efraim-memorial/backend/internal/modules/content/video"
	mediausage "github.com/efraim-memorial/backend/internal/modules/media"
	"github.com/efraim-memorial/backend/internal/modules/search"
	"github.com/efraim-memorial/backend/internal/modules/tasks"
	"github.com/efraim-memorial/backend/internal/pkg/cron"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"github.com/efraim-memorial/backend/internal/store/sqlstore"
	"github.com/gin-gonic/gin"
)

// newStore picks the backend for one content kind from the storage mode.
func newStore[T store.Record](a *App, kind string, files filestore.Files, newItem func() T) store.Store[T] {
	if a.db != nil {
		return sqlstore.New(a.db, kind, newItem)
	}
	return filestore.New[T](a.cfg.Storage.File.Dir, files, filestore.Options{Lock: a.cfg.Storage.File.Lock})
}

func (a *App) newSlotStore() store.SlotStore {
	if a.db != nil {
		return sqlstore.NewSlotStore(a.db)
	}
	return filestore.NewSlotStore(a.cfg.Storage.File.Dir, staticgallery.File)
}

func (a *App) registerRoutes() {
	r := a.router
	cfg := a.cfg
	log := a.logger
	adminMW := middleware.Admin()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	var limit, dedupe gin.HandlerFunc
	if a.rc != nil {
		limit = middleware.RateLimit(a.rc, cfg.RateLimit.Max, cfg.RateLimit.Window, log)
		dedupe = middleware.Idempotence(a.rc, cfg.Redis.IdempotenceTTL, log)
	}

	memories := moderation.New(memory.Kind(),
		newStore(a, "memory", memory.Files, memory.New),
		moderation.WithLogger[*models.Memory](log))
	ktavim := moderation.New(ktav.Kind(),
		newStore(a, "ktav", ktav.Files, ktav.New),
		moderation.WithLogger[*models.Ktav](log))
	videos := moderation.New(video.Kind(),
		newStore(a, "video", video.Files, video.New),
		moderation.WithLogger[*models.Video](log))
	photos := moderation.New(gallery.Kind(),
		newStore(a, "gallery", gallery.Files, gallery.New),
		moderation.WithLogger[*models.GalleryItem](log),
		moderation.WithReleaser[*models.GalleryItem](gallery.Releaser(a.host, cfg.Media.LegacyDir)))
	slots := a.newSlotStore()

	galleryFolder, staticFolder := media.Folders(cfg.Media)

	auth.NewHandler(auth.NewService(cfg.Admin, a.sessions, auth.WithLogger(log)), cfg.Session.CookieSecure).
		RegisterRoutes(&r.RouterGroup)

	api := r.Group("/api")
	if a.rc != nil {
		api.Use(middleware.HTTPCache(a.rc, middleware.HTTPCacheOptions{
			TTL:       cfg.Redis.CacheTTL,
			SkipPaths: []string{"/api/ping", "/api/backups*", "/api/cron-task*", "/api/media/usage", "/api/cloudinary/usage"},
		}, log))
	}
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "pong", "uptime": humanizeDuration(time.Since(a.started))})
	})

	memory.NewHandler(memories, limit, dedupe).RegisterRoutes(api, adminMW)
	ktav.NewHandler(ktavim, limit, dedupe).RegisterRoutes(api, adminMW)
	video.NewHandler(videos).RegisterRoutes(api, adminMW)
	gallery.NewHandler(
		gallery.NewService(photos, a.host, galleryFolder, cfg.Upload.MaxGalleryBytes, gallery.WithLogger(log)),
		limit,
	).RegisterRoutes(api, adminMW)
	staticgallery.NewHandler(
		staticgallery.NewService(slots, a.host, staticFolder, cfg.Upload.MaxStaticBytes, staticgallery.WithLogger(log)),
	).RegisterRoutes(api, adminMW)
	search.NewHandler(search.NewService(ktavim, memories, videos, search.WithLogger(log))).RegisterRoutes(api)
	mediausage.NewHandler(a.host, log).RegisterRoutes(api, adminMW)

	sources := []backup.Source{
		backup.ListSource[*models.Memory]("memories", memories, store.Pending),
		backup.ListSource[*models.Memory]("memories", memories, store.Approved),
		backup.ListSource[*models.Ktav]("ktavim", ktavim, store.Pending),
		backup.ListSource[*models.Ktav]("ktavim", ktavim, store.Approved),
		backup.ListSource[*models.GalleryItem]("gallery", photos, store.Pending),
		backup.ListSource[*models.GalleryItem]("gallery", photos, store.Approved),
		backup.ListSource[*models.Video]("videos", videos, store.Pending),
		backup.ListSource[*models.Video]("videos", videos, store.Approved),
		backup.SlotSource("static_gallery", slots),
	}
	backups := backup.NewService(cfg.Paths.Backups, cfg.Storage.Mode, sources, backup.WithLogger(log))
	backup.NewHandler(backups).RegisterRoutes(api, adminMW)

	a.cron.Register(cron.Job{
		Name:        "backup",
		Description: "Archive every content list and prune old archives",
		Interval:    cfg.Backup.Interval,
		Fn:          backups.Job(cfg.Backup.Keep),
	})
	tasks.NewHandler(a.cron).RegisterRoutes(api, adminMW)

	if cfg.Media.Provider == config.ProviderLocal {
		r.Static(cfg.Media.Local.BaseURL, cfg.Media.Local.Dir)
	}
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Truncate(time.Second).String()
	}
	if d < time.Hour {
		return d.Truncate(time.Minute).String()
	}
	return d.Truncate(time.Hour).String()
}
