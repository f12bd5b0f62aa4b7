package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes attaches the API and health routes to r. Static files are
// mounted separately by the caller.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Merge workflow
	r.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/merge", h.Merge).Methods(http.MethodPost)
	r.HandleFunc("/download/{session_id}/{filename}", h.Download).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/cleanup/{session_id}", h.Cleanup).Methods(http.MethodGet, http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions/{session_id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{session_id}", h.Cleanup).Methods(http.MethodDelete)
}
