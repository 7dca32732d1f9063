package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/efraim-memorial/backend/internal/config"
	"github.com/efraim-memorial/backend/internal/database"
	"github.com/efraim-memorial/backend/internal/media"
	"github.com/efraim-memorial/backend/internal/middleware"
	"github.com/efraim-memorial/backend/internal/pkg/cron"
	"github.com/efraim-memorial/backend/internal/pkg/jwt"
	pkgredis "github.com/efraim-memorial/backend/internal/pkg/redis"
	"github.com/efraim-memorial/backend/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rc       *pkgredis.Client
	host     media.Host
	sessions *session.Manager
	cron     *cron.Scheduler
	logger   *zap.Logger
	started  time.Time
}

// Option overrides a dependency New would otherwise build from the config.
type Option func(*App)

// WithMediaHost replaces the host selected by media.provider.
func WithMediaHost(h media.Host) Option {
	return func(a *App) { a.host = h }
}

// New initializes the application: config → storage → Redis → media host → routes.
func New(ctx context.Context, logger *zap.Logger, cfg *config.AppConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, started: time.Now()}
	for _, o := range opts {
		o(a)
	}

	if cfg.Storage.Mode == config.StorageDatabase {
		db, err := database.Connect(cfg, true)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.db = db
		logger.Info("storage ready", zap.String("mode", cfg.Storage.Mode), zap.String("dialect", cfg.Database.Dialect()))
	} else {
		logger.Info("storage ready",
			zap.String("mode", config.StorageFile),
			zap.String("dir", cfg.Storage.File.Dir),
			zap.Bool("lock", cfg.Storage.File.Lock),
		)
	}

	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.Redis.URL != "" {
		rc, err := pkgredis.Connect(cfg.Redis.URL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.rc = rc
		sessionStore = session.NewRedisStore(rc)
	} else {
		logger.Info("redis not configured: sessions kept in memory, rate limit, response cache and duplicate check disabled")
	}

	signer, err := jwt.NewSigner(cfg.Session.Secret)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("session: %w", err)
	}
	a.sessions = session.NewManager(sessionStore, signer, cfg.Session.TTL)

	if a.host == nil {
		host, err := media.New(ctx, cfg.Media)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("media host: %w", err)
		}
		a.host = host
	}
	logger.Info("media host ready", zap.String("provider", a.host.Name()))

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(newCORS(cfg))
	router.Use(middleware.Session(a.sessions))
	a.router = router
	a.cron = cron.New(cron.WithLogger(logger))

	a.registerRoutes()
	return a, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Start runs the background jobs until ctx is done.
func (a *App) Start(ctx context.Context) { a.cron.Start(ctx) }

// Shutdown releases the database and Redis connections.
func (a *App) Shutdown() { a.close() }

func (a *App) close() {
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
