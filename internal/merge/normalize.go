package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"audio-merger/internal/metrics"
	"audio-merger/internal/transcoder"
)

// Normalizer converts clips to the canonical intermediate format.
type Normalizer struct {
	tool    transcoder.Tool
	timeout time.Duration
}

// NewNormalizer creates a Normalizer bounded by timeout per clip.
func NewNormalizer(tool transcoder.Tool, timeout time.Duration) *Normalizer {
	return &Normalizer{tool: tool, timeout: timeout}
}

// IntermediateName returns the workspace file name for the clip at index.
func IntermediateName(index int) string {
	return fmt.Sprintf("clip_%03d.wav", index)
}

// Normalize writes the intermediate for input into ws and returns its
// path. The name depends only on index, so duplicate inputs get distinct
// intermediates.
func (n *Normalizer) Normalize(ctx context.Context, input string, ws *Workspace, index int) (string, error) {
	out := ws.File(IntermediateName(index))
	fail := func(reason string, err error) (string, error) {
		metrics.ClipsNormalizedTotal.WithLabelValues("failed").Inc()
		return "", &Error{
			Stage:  StageNormalizing,
			Kind:   ErrConversion,
			Reason: fmt.Sprintf("clip %d: %s", index+1, reason),
			Err:    err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.tool.Normalize(ctx, transcoder.NormalizeSpec{InputPath: input, OutputPath: out}); err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return fail(fmt.Sprintf("conversion timed out after %v", n.timeout), err)
		case errors.Is(err, context.Canceled):
			return fail("conversion cancelled", err)
		default:
			return fail("conversion failed", err)
		}
	}

	info, err := os.Stat(out)
	if err != nil {
		return fail("conversion produced no output", err)
	}
	if info.Size() == 0 {
		return fail("conversion produced an empty file", nil)
	}

	metrics.ClipsNormalizedTotal.WithLabelValues("success").Inc()
	return out, nil
}
