package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"audio-merger/internal/logging"
	"audio-merger/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusDown     = "unhealthy"

	pingTimeout = 2 * time.Second
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Database     bool   `json:"database"`
	MediaTools   bool   `json:"media_tools"`
	ActiveMerges int64  `json:"active_merges"`

	// System info
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
}

func (h *Handlers) pingDatabase(ctx context.Context) bool {
	if h.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		logging.Warn("Health check: database ping failed: %v", err)
		return false
	}
	return true
}

// ready reports whether merges can be served.
func (h *Handlers) ready(ctx context.Context) (dbOK, ready bool) {
	dbOK = h.pingDatabase(ctx)
	return dbOK, dbOK && h.toolReady
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbOK, ready := h.ready(r.Context())

	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Database:     dbOK,
		MediaTools:   h.toolReady,
		ActiveMerges: h.activeMerges.Load(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	status := http.StatusOK
	switch {
	case ready:
		response.Status = statusHealthy
	case dbOK:
		// Uploads and downloads still work without ffmpeg.
		response.Status = statusDegraded
	default:
		response.Status = statusDown
		status = http.StatusServiceUnavailable
	}

	writeJSONStatusCode(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when merges can be served
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if _, ready := h.ready(r.Context()); ready {
		writeJSONStatusCode(w, http.StatusOK, map[string]string{
			"status": "ready",
		})
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{
		"status": "not_ready",
	})
}

// VersionResponse is the build information plus the state of the media
// tools the server was started with.
type VersionResponse struct {
	startup.BuildInfo
	MediaTools string `json:"media_tools"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	tools := "available"
	if !h.toolReady {
		tools = "missing"
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, VersionResponse{BuildInfo: startup.GetBuildInfo(), MediaTools: tools})
}
