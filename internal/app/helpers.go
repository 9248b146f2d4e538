package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/config"
)

// Version is set at build time with -ldflags "-X ...app.Version=...".
var Version = "1.0.0"

var processStart = time.Now()

func configureGin(cfg *config.AppConfig) {
	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
		gin.DebugPrintRouteFunc = func(string, string, string, int) {}
		return
	}
	gin.SetMode(gin.ReleaseMode)
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Truncate(time.Second).String()
	}
	if d < time.Hour {
		return d.Truncate(time.Minute).String()
	}
	if d < 24*time.Hour {
		return d.Truncate(time.Hour).String()
	}
	return d.Truncate(24 * time.Hour).String()
}
