package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/pkg/cron"
	"github.com/insightboard/core/internal/pkg/nativelog"
	"github.com/insightboard/core/internal/store"
	"go.uber.org/zap"
)

func TestCheck(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := started.Add(90 * time.Second)
	info := Info{Version: "1.0.0", Env: "production", Started: started}

	code, body := check(context.Background(), store.NewMemory(), info, now, zap.NewNop())
	if code != http.StatusOK || body.Status != "healthy" || body.Services.Database != "connected" {
		t.Errorf("Unexpected healthy response: %d %+v", code, body)
	}
	if body.Uptime != 90 || body.Version != "1.0.0" || body.Environment != "production" {
		t.Errorf("Unexpected process info: %+v", body)
	}

	st := store.NewMemory()
	st.SetUnavailable(errors.New("no reachable servers"))
	code, body = check(context.Background(), st, info, now, zap.NewNop())
	if code != http.StatusServiceUnavailable || body.Status != "unhealthy" || body.Services.Database != "disconnected" {
		t.Errorf("Unexpected unhealthy response: %d %+v", code, body)
	}
	if body.Error == "" {
		t.Error("Expected the ping error to be reported")
	}
}

func TestRoutes(t *testing.T) {
	t.Setenv(nativelog.EnvLogDir, "")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "old.log"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	sched := cron.New(nil)
	ran := make(chan struct{}, 1)
	if err := sched.Register(cron.Job{Name: "probe", Schedule: "@daily", Fn: func(context.Context) error {
		ran <- struct{}{}
		return nil
	}}); err != nil {
		t.Fatal(err)
	}
	pass := func(c *gin.Context) { c.Next() }
	RegisterRoutes(r.Group("/api"), store.NewMemory(), sched, Info{Started: time.Now(), LogDir: dir}, nil, pass)

	tests := []struct {
		method, path string
		want         int
		contains     string
	}{
		{http.MethodGet, "/api/health", http.StatusOK, `"healthy"`},
		{http.MethodGet, "/api/health/log/list", http.StatusOK, "old.log"},
		{http.MethodGet, "/api/health/log?filename=old.log", http.StatusOK, "hello"},
		{http.MethodGet, "/api/health/log?filename=../../etc/passwd", http.StatusBadRequest, ""},
		{http.MethodDelete, "/api/health/log?filename=old.log", http.StatusNoContent, ""},
		{http.MethodGet, "/api/health/log?filename=old.log", http.StatusNotFound, ""},
		{http.MethodGet, "/api/health/cron", http.StatusOK, `"probe"`},
		{http.MethodPost, "/api/health/cron/run/missing", http.StatusNotFound, ""},
		{http.MethodPost, "/api/health/cron/run/probe", http.StatusAccepted, ""},
		{http.MethodGet, "/api/health/cron/task/probe", http.StatusOK, `"status"`},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
		if tt.contains != "" && !strings.Contains(w.Body.String(), tt.contains) {
			t.Errorf("%s %s body %q does not contain %q", tt.method, tt.path, w.Body.String(), tt.contains)
		}
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Error("Expected the triggered job to run")
	}
}

func TestRoutes_AdminRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), store.NewMemory(), cron.New(nil), Info{Started: time.Now()}, nil)

	for _, path := range []string{"/api/health/log/list", "/api/health/cron"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404 without auth middleware", path, w.Code)
		}
	}
}
