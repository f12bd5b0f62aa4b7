package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"audio-merger/internal/database"
	"audio-merger/internal/handlers"
	"audio-merger/internal/logging"
	"audio-merger/internal/memory"
	"audio-merger/internal/merge"
	"audio-merger/internal/metrics"
	"audio-merger/internal/middleware"
	"audio-merger/internal/session"
	"audio-merger/internal/startup"
	"audio-merger/internal/transcoder"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize media tools
	tool := transcoder.New(config.FFmpegPath, config.FFprobePath)
	toolReady := startup.LogToolInit(config.FFmpegPath, config.FFprobePath, tool.Version)

	startup.LogMergeInit(config)
	orch := merge.New(tool, merge.Config{
		Workers:          config.MergeWorkers,
		ProbeTimeout:     config.ProbeTimeout,
		NormalizeTimeout: config.NormalizeTimeout,
		ConcatTimeout:    config.ConcatTimeout,
		DefaultBitrate:   config.DefaultBitrate,
	})

	store, err := session.NewStore(session.Config{
		Root:              config.UploadDir,
		MaxFileSize:       config.MaxFileSize,
		AllowedExtensions: config.AllowedExtensions,
		TTL:               config.SessionTTL,
	}, db, orch.Probe())
	if err != nil {
		startup.LogFatal("Failed to initialize session store: %v", err)
	}

	startup.LogJanitorInit(config.SessionTTL, config.CleanupInterval)
	janitor := session.NewJanitor(store, config.CleanupInterval)
	janitor.Start()

	collector := metrics.NewCollector(db, collectorInterval)
	collector.Start()

	h := handlers.New(store, orch, db, toolReady)
	router := setupRouter(h, config.StaticDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.RequestID(middleware.Logger(loggingConfig)(router))

	srv := newServer(":"+config.Port, handler)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(":"+config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleShutdown(srv, metricsSrv, janitor, collector, tool)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	h.RegisterRoutes(r)

	// Front-end
	r.HandleFunc("/", serveStaticFile(filepath.Join(staticDir, "index.html"), "text/html; charset=utf-8")).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

func serveStaticFile(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
	}
}

// newServer builds the application server. Uploads and merges can run for
// minutes, so only header reads are bounded tightly and writes are not.
func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(addr string, h *handlers.Handlers) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", h.MetricsHandler())
	serveMux.HandleFunc("/health", h.LivenessCheck)
	return &http.Server{
		Addr:         addr,
		Handler:      serveMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, janitor *session.Janitor, collector *metrics.Collector, tool *transcoder.FFmpeg) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping session janitor")
	janitor.Stop()
	startup.LogShutdownStepComplete("Session janitor stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	// Merges run detached from their requests; killing the tracked ffmpeg
	// processes makes them fail fast so Shutdown can drain.
	startup.LogShutdownStep(fmt.Sprintf("Stopping %d media tool processes", tool.Running()))
	tool.Cleanup()
	startup.LogShutdownStepComplete("Media tool processes stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
