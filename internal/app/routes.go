package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/config"
	"github.com/insightboard/core/internal/middleware"
	"github.com/insightboard/core/internal/modules/analytics"
	"github.com/insightboard/core/internal/modules/filter"
	"github.com/insightboard/core/internal/modules/insight"
	"github.com/insightboard/core/internal/modules/system/core/health"
	"github.com/insightboard/core/internal/pkg/response"
)

const apiPrefix = "/api"

func (a *App) registerRoutes() {
	r := a.router
	logger := a.logger

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "insightboard-core",
			"version": Version,
			"env":     a.cfg.Env,
			"uptime":  humanizeDuration(time.Since(processStart)),
		})
	})

	if a.metrics != nil {
		r.GET(a.cfg.Metrics.Path, gin.WrapH(a.metrics.Handler()))
	}

	api := r.Group(apiPrefix)

	// Write routes require a token when auth is enabled; the admin health
	// routes are only mounted then.
	var writeMW, adminMW []gin.HandlerFunc
	if a.signer != nil {
		api.Use(middleware.OptionalAuth(a.signer))
		writeMW = append(writeMW, middleware.Auth(a.signer))
		adminMW = append(adminMW, middleware.Auth(a.signer))
	}

	if a.cfg.RateLimit.Enable {
		var limiter middleware.Limiter
		if a.cfg.RateLimit.Backend == config.RateLimitRedis && a.redis != nil {
			limiter = middleware.NewWindowLimiter(a.redis, a.cfg.RateLimit.RequestsPerSecond, a.cfg.RateLimit.Burst)
		} else {
			limiter = middleware.NewTokenLimiter(a.cfg.RateLimit.RequestsPerSecond, a.cfg.RateLimit.Burst)
		}
		api.Use(middleware.RateLimit(limiter, logger, a.metrics))
	}

	if a.redis != nil {
		writeMW = append(writeMW, middleware.Idempotence(a.redis))
		api.Use(middleware.PurgeOnWrite(a.redis, logger))
	}

	health.RegisterRoutes(api, a.store, a.sched, health.Info{
		Version: Version,
		Env:     a.cfg.Env,
		Started: processStart,
		LogDir:  a.logDir,
	}, logger, adminMW...)

	views := api.Group("")
	if a.redis != nil {
		views.Use(middleware.HTTPCache(a.redis, middleware.HTTPCacheOptions{}))
	}
	analytics.NewHandler(analytics.NewService(a.store, logger)).RegisterRoutes(views)
	filter.NewHandler(filter.NewService(a.store, logger)).RegisterRoutes(views)

	insight.NewHandler(insight.NewService(a.store, logger, a.metrics)).RegisterRoutes(api, writeMW...)
}
