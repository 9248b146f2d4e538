package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/config"
	"github.com/insightboard/core/internal/database"
	"github.com/insightboard/core/internal/middleware"
	pkgcron "github.com/insightboard/core/internal/pkg/cron"
	"github.com/insightboard/core/internal/pkg/jwt"
	"github.com/insightboard/core/internal/pkg/metrics"
	"github.com/insightboard/core/internal/pkg/nativelog"
	pkgredis "github.com/insightboard/core/internal/pkg/redis"
	"github.com/insightboard/core/internal/store"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	logger  *zap.Logger
	conn    *database.Connector
	redis   *pkgredis.Client
	metrics *metrics.Metrics
	store   store.Store
	signer  *jwt.Signer
	sched   *pkgcron.Scheduler
	logDir  string
	cancel  context.CancelFunc
}

// New initializes the application: store → Redis → auth → jobs → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	configureGin(cfg)

	a := &App{cfg: cfg, logger: logger, logDir: nativelog.ResolveDir(cfg.LogDir())}
	if cfg.Metrics.Enable {
		a.metrics = metrics.New()
	}

	switch cfg.Mongo.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory insight store, data is not persisted")
		a.store = store.NewMemory()
	default:
		var setup []database.SetupFunc
		if cfg.Mongo.EnsureIndexes {
			setup = append(setup, database.EnsureInsightIndexes)
		}
		a.conn = database.NewConnector(cfg.Mongo, logger.Named("mongo"), setup...)
		a.store = store.NewMongo(a.conn)
	}
	a.store = store.Instrument(a.store, a.metrics)

	if cfg.Redis.Enable {
		rc, err := pkgredis.Connect(context.Background(), cfg.Redis.URLValue())
		if err != nil {
			a.closeConn()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = rc
	}

	if cfg.Auth.Enable {
		signer, err := jwt.NewSigner(cfg.Auth.JWTSecret)
		if err != nil {
			a.closeConn()
			return nil, fmt.Errorf("auth: %w", err)
		}
		a.signer = signer
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.sched = pkgcron.New(logger)
	if cfg.Jobs.Enable {
		if err := registerCronJobs(a.sched, a.store, cfg.Jobs, a.logDir, logger); err != nil {
			cancel()
			a.closeConn()
			return nil, fmt.Errorf("jobs: %w", err)
		}
		a.sched.Start(ctx)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger, a.metrics))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins, cfg.IsDev())))
	a.router = router
	a.registerRoutes()

	return a, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and releases the store and cache clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.cancel()
	a.sched.Stop()

	var errs []error
	if a.conn != nil {
		if err := a.conn.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongo: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) closeConn() {
	if a.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.conn.Disconnect(ctx)
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
