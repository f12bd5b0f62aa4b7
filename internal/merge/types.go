package merge

import "time"

// Clip is one source audio file of a merge.
type Clip struct {
	SourcePath      string  `json:"-"`
	DisplayName     string  `json:"filename"`
	SizeBytes       int64   `json:"size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Request describes one merge.
type Request struct {
	// ID identifies the merge in logs and results. Empty means a new UUID.
	ID string
	// SessionID is carried for logging and bookkeeping only.
	SessionID string
	// Sources are the clip paths in output order. Duplicates are kept.
	Sources []string
	// OutputDir receives the published artifact and hosts the workspace.
	OutputDir string
	// OutputName overrides the generated timestamped file name.
	OutputName string
	// Bitrate is the MP3 bitrate, e.g. "192k". Empty means Config.DefaultBitrate.
	Bitrate string
	// FadeSeconds is the fade-in and fade-out length. Zero disables fades.
	FadeSeconds float64
}

// Result describes a published merge artifact.
type Result struct {
	ID              string        `json:"id"`
	OutputPath      string        `json:"-"`
	OutputName      string        `json:"output_name"`
	SizeBytes       int64         `json:"size_bytes"`
	DurationSeconds float64       `json:"duration_seconds"`
	Bitrate         string        `json:"bitrate"`
	FadeSeconds     float64       `json:"fade_seconds"`
	Clips           []Clip        `json:"clips"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Transition is reported to Config.Observer on every stage change.
type Transition struct {
	MergeID string
	From    Stage
	To      Stage
	Elapsed time.Duration
}
