package merge

import (
	"context"
	"time"

	"audio-merger/internal/logging"
	"audio-merger/internal/metrics"
	"audio-merger/internal/transcoder"
)

// MediaProbe reads durations through the external tool. Durations are
// advisory, so every failure yields zero.
type MediaProbe struct {
	tool    transcoder.Tool
	timeout time.Duration
}

// NewMediaProbe creates a MediaProbe bounded by timeout per call.
func NewMediaProbe(tool transcoder.Tool, timeout time.Duration) *MediaProbe {
	return &MediaProbe{tool: tool, timeout: timeout}
}

// Duration returns the duration of path in seconds, or 0 when it cannot be
// determined.
func (p *MediaProbe) Duration(ctx context.Context, path string) float64 {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	info, err := p.tool.Probe(ctx, path)
	if err != nil || info == nil || info.Duration <= 0 {
		metrics.ProbeFailuresTotal.Inc()
		logging.Debug("Probe failed for %s: %v", path, err)
		return 0
	}
	return info.Duration
}
