package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/pkg/cron"
	"github.com/insightboard/core/internal/pkg/nativelog"
	"github.com/insightboard/core/internal/pkg/response"
	"go.uber.org/zap"
)

const pingTimeout = 3 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Info describes the running process.
type Info struct {
	Version string
	Env     string
	Started time.Time
	LogDir  string
}

type services struct {
	Database string `json:"database"`
	API      string `json:"api"`
}

type status struct {
	Status      string   `json:"status"`
	Timestamp   string   `json:"timestamp"`
	Version     string   `json:"version,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Services    services `json:"services"`
	Uptime      float64  `json:"uptime,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

// RegisterRoutes mounts the public health probe. The log file and job
// endpoints are mounted only when authMW is given.
func RegisterRoutes(rg *gin.RouterGroup, db Pinger, sched *cron.Scheduler, info Info, logger *zap.Logger, authMW ...gin.HandlerFunc) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rg.GET("/health", func(c *gin.Context) {
		c.JSON(check(c.Request.Context(), db, info, time.Now(), logger))
	})

	if len(authMW) == 0 {
		return
	}
	admin := rg.Group("/health", authMW...)

	if sched != nil {
		cronGroup := admin.Group("/cron")
		cronGroup.GET("", func(c *gin.Context) {
			response.OK(c, sched.List())
		})
		cronGroup.POST("/run/:name", func(c *gin.Context) {
			if err := sched.Run(c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			c.Status(http.StatusAccepted)
		})
		cronGroup.GET("/task/:name", func(c *gin.Context) {
			result, err := sched.GetTask(c.Param("name"))
			if err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, result)
		})
	}

	logDir := nativelog.ResolveDir(info.LogDir)
	logGroup := admin.Group("/log")
	{
		logGroup.GET("/list", func(c *gin.Context) {
			entries, err := os.ReadDir(logDir)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					response.OK(c, []logItem{})
					return
				}
				response.InternalError(c, err)
				return
			}

			items := make([]logItem, 0, len(entries))
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
					continue
				}
				fi, err := entry.Info()
				if err != nil {
					continue
				}
				items = append(items, logItem{
					Size:     formatByteSize(fi.Size()),
					Filename: entry.Name(),
					Created:  fi.ModTime().UnixMilli(),
				})
			}
			sort.Slice(items, func(i, j int) bool {
				return items[i].Created > items[j].Created
			})
			response.OK(c, items)
		})

		logGroup.GET("", func(c *gin.Context) {
			filename := c.Query("filename")
			if filename == "" {
				filename = nativelog.TodayFilename(time.Now())
			}
			path, ok := logPath(logDir, filename)
			if !ok {
				response.BadRequest(c, "invalid filename")
				return
			}
			data, err := os.ReadFile(path)
			if err != nil {
				response.NotFoundMsg(c, "log file not exists")
				return
			}
			c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
		})

		logGroup.DELETE("", func(c *gin.Context) {
			path, ok := logPath(logDir, c.Query("filename"))
			if !ok {
				response.BadRequest(c, "invalid filename")
				return
			}
			// Today's file is still being appended to, so it is truncated.
			var err error
			if filepath.Base(path) == nativelog.TodayFilename(time.Now()) {
				err = os.WriteFile(path, nil, 0o644)
			} else {
				err = os.Remove(path)
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				response.InternalError(c, err)
				return
			}
			response.NoContent(c)
		})
	}
}

// check pings the store and builds the probe response.
func check(ctx context.Context, db Pinger, info Info, now time.Time, logger *zap.Logger) (int, status) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		logger.Warn("health check failed", zap.Error(err))
		return http.StatusServiceUnavailable, status{
			Status:    "unhealthy",
			Timestamp: now.UTC().Format(time.RFC3339Nano),
			Services:  services{Database: "disconnected", API: "operational"},
			Error:     err.Error(),
		}
	}
	return http.StatusOK, status{
		Status:      "healthy",
		Timestamp:   now.UTC().Format(time.RFC3339Nano),
		Version:     info.Version,
		Environment: info.Env,
		Services:    services{Database: "connected", API: "operational"},
		Uptime:      now.Sub(info.Started).Seconds(),
	}
}

func logPath(dir, filename string) (string, bool) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) || !strings.HasSuffix(name, ".log") {
		return "", false
	}
	return filepath.Join(dir, name), true
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
