package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"audio-merger/internal/database"
	"audio-merger/internal/logging"
	"audio-merger/internal/merge"
	"audio-merger/internal/session"
)

// MergeRequest is the JSON body of POST /merge
type MergeRequest struct {
	SessionID    string   `json:"session_id"`
	FileOrder    []string `json:"file_order"`
	Quality      string   `json:"quality"`
	FadeDuration float64  `json:"fade_duration"`
}

// MergeResponse is returned by a successful merge
type MergeResponse struct {
	Success         bool    `json:"success"`
	MergeID         string  `json:"merge_id"`
	Filename        string  `json:"filename"`
	DownloadURL     string  `json:"download_url"`
	FileSize        string  `json:"file_size"`
	SizeBytes       int64   `json:"size_bytes"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// MergeErrorResponse describes a failed merge
type MergeErrorResponse struct {
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind,omitempty"`
	MergeID string `json:"merge_id,omitempty"`
}

// Merge concatenates clips of a session in the requested order. The merge
// keeps running if the client disconnects, so a started merge always
// releases its workspace and records its outcome.
func (h *Handlers) Merge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	body := http.MaxBytesReader(w, r.Body, maxMergeRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" || len(req.FileOrder) == 0 {
		writeJSONError(w, "Missing session ID or file order", http.StatusBadRequest)
		return
	}

	dir, err := h.store.Dir(req.SessionID)
	if err != nil {
		status, msg := sessionError(err)
		writeJSONError(w, msg, status)
		return
	}
	sources, err := h.store.Resolve(req.SessionID, req.FileOrder)
	if err != nil {
		if errors.Is(err, session.ErrInvalidName) {
			writeJSONStatusCode(w, http.StatusBadRequest, MergeErrorResponse{
				Error: "Invalid file name in file order",
				Stage: string(merge.StageIdle),
				Kind:  merge.KindName(merge.ErrValidation),
			})
			return
		}
		status, msg := sessionError(err)
		writeJSONError(w, msg, status)
		return
	}

	// Detached from the request so a disconnect cannot abort a merge midway.
	ctx := context.WithoutCancel(r.Context())

	release, err := h.store.AcquireShared(ctx, req.SessionID)
	if err != nil {
		status, msg := sessionError(err)
		writeJSONError(w, msg, status)
		return
	}
	defer release()

	h.activeMerges.Add(1)
	defer h.activeMerges.Add(-1)

	mergeID := uuid.NewString()
	result, err := h.merger.Merge(ctx, merge.Request{
		ID:          mergeID,
		SessionID:   req.SessionID,
		Sources:     sources,
		OutputDir:   dir,
		Bitrate:     strings.TrimSpace(req.Quality),
		FadeSeconds: req.FadeDuration,
	})
	if err != nil {
		h.recordFailure(ctx, mergeID, req, err)
		writeMergeError(w, mergeID, err)
		return
	}

	h.store.RecordMerge(ctx, database.MergeRecord{
		ID:              result.ID,
		SessionID:       req.SessionID,
		Status:          database.MergeSucceeded,
		OutputName:      result.OutputName,
		SizeBytes:       result.SizeBytes,
		DurationSeconds: result.DurationSeconds,
		Bitrate:         result.Bitrate,
		FadeSeconds:     result.FadeSeconds,
		ClipCount:       len(result.Clips),
		Stage:           string(merge.StageVerified),
		Elapsed:         result.Elapsed,
		CreatedAt:       time.Now(),
	})

	writeJSONStatusCode(w, http.StatusOK, MergeResponse{
		Success:         true,
		MergeID:         result.ID,
		Filename:        result.OutputName,
		DownloadURL:     downloadURL(req.SessionID, result.OutputName),
		FileSize:        session.FormatSize(result.SizeBytes),
		SizeBytes:       result.SizeBytes,
		Duration:        session.FormatDuration(result.DurationSeconds),
		DurationSeconds: result.DurationSeconds,
	})
}

func (h *Handlers) recordFailure(ctx context.Context, mergeID string, req MergeRequest, err error) {
	rec := database.MergeRecord{
		ID:          mergeID,
		SessionID:   req.SessionID,
		Status:      database.MergeFailed,
		Bitrate:     req.Quality,
		FadeSeconds: req.FadeDuration,
		ClipCount:   len(req.FileOrder),
		Error:       err.Error(),
		CreatedAt:   time.Now(),
	}
	if me, ok := merge.AsError(err); ok {
		rec.Stage = string(me.Stage)
		rec.Kind = me.KindName()
		rec.Error = me.Reason
	}
	h.store.RecordMerge(ctx, rec)
}

// writeMergeError maps a merge failure to a response. Only the reason of a
// typed failure reaches the client; causes stay in the logs.
func writeMergeError(w http.ResponseWriter, mergeID string, err error) {
	me, ok := merge.AsError(err)
	if !ok {
		logging.Error("Merge %s failed: %v", mergeID, err)
		writeJSONStatusCode(w, http.StatusInternalServerError, MergeErrorResponse{
			Error:   "Merge failed",
			MergeID: mergeID,
		})
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(me, merge.ErrValidation) {
		status = http.StatusBadRequest
	}
	writeJSONStatusCode(w, status, MergeErrorResponse{
		Error:   me.Reason,
		Stage:   string(me.Stage),
		Kind:    me.KindName(),
		MergeID: mergeID,
	})
}

func downloadURL(sessionID, filename string) string {
	return "/download/" + url.PathEscape(sessionID) + "/" + url.PathEscape(filename)
}
