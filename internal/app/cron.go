package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/insightboard/core/internal/config"
	pkgcron "github.com/insightboard/core/internal/pkg/cron"
	"github.com/insightboard/core/internal/store"
	"go.uber.org/zap"
)

const storeCheckTimeout = 5 * time.Second

// registerCronJobs registers the background maintenance jobs.
func registerCronJobs(sched *pkgcron.Scheduler, st store.Store, cfg config.JobsConfig, logDir string, logger *zap.Logger) error {
	cronLogger := logger.Named("CronService")

	jobs := []pkgcron.Job{
		{
			Name:        "check_store",
			Description: "Ping the insight store",
			Schedule:    "@every 5m",
			Fn: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
				defer cancel()
				if err := st.Ping(ctx); err != nil {
					cronLogger.Warn("insight store unreachable", zap.Error(err))
					return err
				}
				return nil
			},
		},
	}

	if cfg.LogRetentionDays > 0 {
		jobs = append(jobs, pkgcron.Job{
			Name:        "cleanup_logs",
			Description: fmt.Sprintf("Delete log files older than %d days", cfg.LogRetentionDays),
			Schedule:    "@daily",
			Fn: func(ctx context.Context) error {
				cutoff := time.Now().AddDate(0, 0, -cfg.LogRetentionDays)
				n, err := cleanupLogs(logDir, cutoff)
				if err != nil {
					cronLogger.Warn("log cleanup failed", zap.Error(err))
					return err
				}
				cronLogger.Info("log cleanup finished", zap.Int("removed", n))
				return nil
			},
		})
	}

	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// cleanupLogs removes .log files in dir last modified before cutoff and
// returns how many were removed.
func cleanupLogs(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		fi, err := entry.Info()
		if err != nil || !fi.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
