package transcoder

import "context"

// Canonical intermediate format produced by Normalize.
const (
	IntermediateCodec      = "pcm_s16le"
	IntermediateSampleRate = 44100
	IntermediateChannels   = 2
)

// OutputCodec is the encoder used for the merged artifact.
const OutputCodec = "libmp3lame"

// Tool is the capability the merge pipeline needs from the external
// transcoding utility.
type Tool interface {
	// Probe reads container metadata. It has no side effects.
	Probe(ctx context.Context, path string) (*ProbeInfo, error)
	// Normalize converts one input to the canonical intermediate encoding.
	Normalize(ctx context.Context, spec NormalizeSpec) error
	// Concatenate joins the files listed in a concat manifest into one
	// re-encoded output.
	Concatenate(ctx context.Context, spec ConcatSpec) error
}

// ProbeInfo contains the subset of ffprobe output the merger cares about.
type ProbeInfo struct {
	Duration   float64 `json:"duration"`
	FormatName string  `json:"format_name"`
	BitRate    int64   `json:"bit_rate"`
	Codec      string  `json:"codec"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
}

// NormalizeSpec describes a single normalization.
type NormalizeSpec struct {
	InputPath  string
	OutputPath string
}

// ConcatSpec describes the final concatenation and re-encode.
type ConcatSpec struct {
	ManifestPath string
	OutputPath   string
	Bitrate      string

	// FadeIn is the fade-in length in seconds starting at 0. Zero disables it.
	FadeIn float64
	// FadeOut is the fade-out length in seconds. Zero disables it.
	FadeOut float64
	// FadeOutStart is the offset in seconds at which the fade-out begins.
	FadeOutStart float64
}
