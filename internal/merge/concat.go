package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"audio-merger/internal/transcoder"
)

// Concatenator runs the single concatenation and re-encode of a merge.
type Concatenator struct {
	tool    transcoder.Tool
	timeout time.Duration
}

// NewConcatenator creates a Concatenator bounded by timeout.
func NewConcatenator(tool transcoder.Tool, timeout time.Duration) *Concatenator {
	return &Concatenator{tool: tool, timeout: timeout}
}

// FadePlan computes the fade settings for an output of totalSeconds.
//
// The fade-out ends at the end of the output. When the total is unknown
// only the fade-in is applied.
func FadePlan(fadeSeconds, totalSeconds float64) (fadeIn, fadeOut, fadeOutStart float64) {
	if fadeSeconds <= 0 {
		return 0, 0, 0
	}
	if totalSeconds <= 0 {
		return fadeSeconds, 0, 0
	}
	start := totalSeconds - fadeSeconds
	if start < 0 {
		start = 0
	}
	return fadeSeconds, fadeSeconds, start
}

// Concatenate writes the merged output for manifest to output and returns
// its size in bytes.
func (c *Concatenator) Concatenate(ctx context.Context, manifest, output, bitrate string, fadeSeconds, totalSeconds float64) (int64, error) {
	spec := transcoder.ConcatSpec{
		ManifestPath: manifest,
		OutputPath:   output,
		Bitrate:      bitrate,
	}
	spec.FadeIn, spec.FadeOut, spec.FadeOutStart = FadePlan(fadeSeconds, totalSeconds)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.tool.Concatenate(ctx, spec); err != nil {
		reason := "merge failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("merge timed out after %v", c.timeout)
		}
		return 0, &Error{Stage: StageConcatenating, Kind: ErrConcatenation, Reason: reason, Err: err}
	}

	info, err := os.Stat(output)
	if err != nil {
		return 0, &Error{Stage: StageConcatenating, Kind: ErrEmptyOutput, Reason: "merged file was not created", Err: err}
	}
	if info.Size() == 0 {
		return 0, &Error{Stage: StageConcatenating, Kind: ErrEmptyOutput, Reason: "merged file is empty"}
	}
	return info.Size(), nil
}
