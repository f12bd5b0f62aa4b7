package handlers

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"audio-merger/internal/logging"
	"audio-merger/internal/mediatypes"
	"audio-merger/internal/metrics"
	"audio-merger/internal/session"
)

// Download serves a merged file as an audio/mpeg attachment.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, filename := vars["session_id"], vars["filename"]

	path, _, err := h.store.Artifact(sessionID, filename)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidName):
			metrics.DownloadsTotal.WithLabelValues("invalid").Inc()
			writeJSONError(w, "Invalid file format", http.StatusBadRequest)
		case errors.Is(err, session.ErrEmptyArtifact):
			metrics.DownloadsTotal.WithLabelValues("empty").Inc()
			logging.Warn("Empty merge artifact %s in session %s", filename, sessionID)
			writeJSONError(w, "File is corrupted or empty", http.StatusInternalServerError)
		default:
			metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
			writeJSONError(w, "File not found or expired", http.StatusNotFound)
		}
		return
	}

	f, err := os.Open(path)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
		writeJSONError(w, "File not found or expired", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logging.Error("Download: stat %s failed: %v", filename, err)
		writeJSONError(w, "Download failed", http.StatusInternalServerError)
		return
	}

	if err := h.store.Touch(r.Context(), sessionID); err != nil {
		logging.Debug("Download: touch session %s: %v", sessionID, err)
	}

	w.Header().Set("Content-Type", mediatypes.GetMimeType(filepath.Ext(filename)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "no-store")
	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

// Cleanup deletes a session with its uploads and merged files.
func (h *Handlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	err := h.store.Remove(r.Context(), sessionID, "cleanup")
	switch {
	case err == nil:
		writeJSONStatusCode(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, session.ErrBusy):
		writeJSONStatusCode(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"error":   "Session is busy",
		})
	default:
		if !errors.Is(err, session.ErrNotFound) && !errors.Is(err, session.ErrInvalidID) {
			logging.Warn("Cleanup of session %s failed: %v", sessionID, err)
		}
		writeJSONStatusCode(w, http.StatusOK, map[string]bool{"success": false})
	}
}

// GetSession returns the clips and merge history of a session.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	info, err := h.store.Info(r.Context(), sessionID)
	if err != nil {
		status, msg := sessionError(err)
		if status == http.StatusInternalServerError {
			logging.Error("GetSession %s failed: %v", sessionID, err)
		}
		writeJSONError(w, msg, status)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, info)
}
