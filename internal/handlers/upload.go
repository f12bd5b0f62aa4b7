package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"audio-merger/internal/logging"
	"audio-merger/internal/session"
)

const (
	filesField     = "files"
	sessionIDField = "session_id"
	maxFieldBytes  = 256
)

// UploadResponse is returned by a successful upload
type UploadResponse struct {
	Success   bool                   `json:"success"`
	SessionID string                 `json:"session_id"`
	Files     []session.UploadedFile `json:"files"`
}

// Upload stores the clips of a multipart request. The "files" field may
// repeat. A "session_id" query parameter, or a form field sent before the
// files, appends to an existing session; otherwise a new one is created.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "No files selected", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sessionID := strings.TrimSpace(r.URL.Query().Get(sessionIDField))
	if sessionID != "" {
		if status, msg := sessionError(h.checkSession(sessionID)); status != 0 {
			writeJSONError(w, msg, status)
			return
		}
	}

	var files []session.UploadedFile
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logging.Warn("Upload: malformed multipart body: %v", err)
			writeJSONError(w, "Malformed upload", http.StatusBadRequest)
			return
		}

		switch part.FormName() {
		case sessionIDField:
			if len(files) > 0 {
				part.Close()
				continue
			}
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			part.Close()
			if err != nil {
				writeJSONError(w, "Malformed upload", http.StatusBadRequest)
				return
			}
			if id := strings.TrimSpace(string(value)); id != "" && sessionID == "" {
				if status, msg := sessionError(h.checkSession(id)); status != 0 {
					writeJSONError(w, msg, status)
					return
				}
				sessionID = id
			}

		case filesField:
			if part.FileName() == "" {
				part.Close()
				continue
			}
			if !h.store.Allowed(session.SanitizeFilename(part.FileName())) {
				part.Close()
				writeJSONError(w, "Unsupported file type: "+filepath.Base(part.FileName()), http.StatusBadRequest)
				return
			}
			if sessionID == "" {
				id, err := h.store.Create(ctx)
				if err != nil {
					part.Close()
					logging.Error("Upload: failed to create session: %v", err)
					writeJSONError(w, "Upload failed", http.StatusInternalServerError)
					return
				}
				sessionID = id
			}

			uploaded, err := h.store.Save(ctx, sessionID, part.FileName(), part)
			part.Close()
			if err != nil {
				status, msg := uploadError(err, part.FileName())
				if status == http.StatusInternalServerError {
					logging.Error("Upload to session %s failed: %v", sessionID, err)
				}
				writeJSONError(w, msg, status)
				return
			}
			files = append(files, *uploaded)

		default:
			part.Close()
		}
	}

	if len(files) == 0 {
		writeJSONError(w, "No files selected", http.StatusBadRequest)
		return
	}

	logging.Info("Uploaded %d file(s) to session %s", len(files), sessionID)
	writeJSONStatusCode(w, http.StatusOK, UploadResponse{
		Success:   true,
		SessionID: sessionID,
		Files:     files,
	})
}

// checkSession reports whether id names an existing session.
func (h *Handlers) checkSession(id string) error {
	_, err := h.store.Dir(id)
	return err
}

// sessionError maps session lookup errors to a status code and message.
// A zero status means err is nil.
func sessionError(err error) (int, string) {
	switch {
	case err == nil:
		return 0, ""
	case errors.Is(err, session.ErrInvalidID):
		return http.StatusBadRequest, "Invalid session ID"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict, "Session is busy"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func uploadError(err error, filename string) (int, string) {
	switch {
	case errors.Is(err, session.ErrUnsupportedType):
		return http.StatusBadRequest, "Unsupported file type: " + filepath.Base(filename)
	case errors.Is(err, session.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large: " + filepath.Base(filename)
	default:
		return sessionError(err)
	}
}
