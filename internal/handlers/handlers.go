package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"audio-merger/internal/merge"
	"audio-merger/internal/session"
)

// maxMergeRequestBytes bounds the JSON body of a merge request.
const maxMergeRequestBytes = 1 << 20

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers serves the HTTP API.
type Handlers struct {
	store     *session.Store
	merger    *merge.Orchestrator
	db        Pinger
	toolReady bool
	startTime time.Time

	activeMerges atomic.Int64
}

// New creates the API handlers. toolReady reports whether ffmpeg and
// ffprobe were found at startup; it is surfaced by the health checks.
func New(store *session.Store, merger *merge.Orchestrator, db Pinger, toolReady bool) *Handlers {
	return &Handlers{
		store:     store,
		merger:    merger,
		db:        db,
		toolReady: toolReady,
		startTime: time.Now(),
	}
}
