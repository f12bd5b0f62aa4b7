package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audio-merger/internal/database"
	"audio-merger/internal/handlers"
	"audio-merger/internal/merge"
	"audio-merger/internal/metrics"
	"audio-merger/internal/session"
	"audio-merger/internal/transcoder"
)

func newTestHandlers(t *testing.T) *handlers.Handlers {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), database.FileName))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	orch := merge.New(transcoder.NewFake(nil), merge.Config{Workers: 1})
	store, err := session.NewStore(session.Config{
		Root:              filepath.Join(t.TempDir(), "uploads"),
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{"mp3"},
	}, db, orch.Probe())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return handlers.New(store, orch, db, true)
}

func writeStatic(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>merger</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "js"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "js", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestDatabaseImplementsStatsProvider(t *testing.T) {
	var _ metrics.StatsProvider = (*database.Database)(nil)
}

func TestSetupRouter(t *testing.T) {
	router := setupRouter(newTestHandlers(t), writeStatic(t))

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"index", http.MethodGet, "/", http.StatusOK, "merger"},
		{"static asset", http.MethodGet, "/js/app.js", http.StatusOK, "console.log"},
		{"version", http.MethodGet, "/version", http.StatusOK, "go_version"},
		{"liveness", http.MethodGet, "/livez", http.StatusOK, "alive"},
		{"readiness", http.MethodGet, "/readyz", http.StatusOK, "ready"},
		{"unknown session", http.MethodGet, "/api/sessions/3f2504e0-4f89-41d3-9a0c-0305e82c3301", http.StatusNotFound, "Session not found"},
		{"cleanup unknown", http.MethodPost, "/cleanup/3f2504e0-4f89-41d3-9a0c-0305e82c3301", http.StatusOK, "false"},
		{"missing static", http.MethodGet, "/nope.txt", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, http.NoBody))
			if w.Code != tt.status {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), tt.body) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestServeStaticFile(t *testing.T) {
	dir := writeStatic(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"existing file", filepath.Join(dir, "index.html"), http.StatusOK},
		{"missing file", filepath.Join(dir, "missing.html"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			serveStaticFile(tt.path, "text/html; charset=utf-8")(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if w.Header().Get("Cache-Control") != "no-cache" {
				t.Error("missing Cache-Control header")
			}
		})
	}
}

func TestServerTimeouts(t *testing.T) {
	srv := newServer(":0", http.NotFoundHandler())

	if srv.ReadHeaderTimeout <= 0 || srv.ReadHeaderTimeout > time.Minute {
		t.Errorf("ReadHeaderTimeout = %v", srv.ReadHeaderTimeout)
	}
	if srv.ReadTimeout < 5*time.Minute {
		t.Errorf("ReadTimeout = %v is too short for large uploads", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %v, merges must not be cut off", srv.WriteTimeout)
	}
	if srv.IdleTimeout <= 0 {
		t.Errorf("IdleTimeout = %v", srv.IdleTimeout)
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer(":0", newTestHandlers(t))

	if srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 {
		t.Errorf("timeouts = %v/%v", srv.ReadTimeout, srv.WriteTimeout)
	}

	for _, path := range []string{"/metrics", "/health"} {
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if w.Code != http.StatusOK {
			t.Errorf("%s = %d", path, w.Code)
		}
	}
}

func TestShutdownTimeout(t *testing.T) {
	if shutdownTimeout < 10*time.Second {
		t.Errorf("shutdownTimeout = %v, should allow in-flight requests to drain", shutdownTimeout)
	}
}
