package database

import "time"

// Session is one upload session.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// ClipRecord is an uploaded clip.
type ClipRecord struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	Filename        string    `json:"filename"`
	SizeBytes       int64     `json:"size_bytes"`
	DurationSeconds float64   `json:"duration_seconds"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// MergeStatus is the outcome of a recorded merge.
type MergeStatus string

const (
	MergeSucceeded MergeStatus = "success"
	MergeFailed    MergeStatus = "failed"
)

// MergeRecord is one merge attempt of a session.
type MergeRecord struct {
	ID              string        `json:"id"`
	SessionID       string        `json:"session_id"`
	Status          MergeStatus   `json:"status"`
	OutputName      string        `json:"output_name,omitempty"`
	SizeBytes       int64         `json:"size_bytes"`
	DurationSeconds float64       `json:"duration_seconds"`
	Bitrate         string        `json:"bitrate"`
	FadeSeconds     float64       `json:"fade_seconds"`
	ClipCount       int           `json:"clip_count"`
	Stage           string        `json:"stage,omitempty"`
	Kind            string        `json:"kind,omitempty"`
	Error           string        `json:"error,omitempty"`
	Elapsed         time.Duration `json:"elapsed"`
	CreatedAt       time.Time     `json:"created_at"`
}
