package transcoder

import (
	"math"
	"strconv"
	"strings"
)

func probeArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"--", path,
	}
}

func normalizeArgs(spec NormalizeSpec) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", spec.InputPath,
		"-vn",
		"-acodec", IntermediateCodec,
		"-ar", strconv.Itoa(IntermediateSampleRate),
		"-ac", strconv.Itoa(IntermediateChannels),
		"-loglevel", "error",
		spec.OutputPath,
	}
}

func concatArgs(spec ConcatSpec) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", spec.ManifestPath,
		"-vn",
		"-c:a", OutputCodec,
		"-b:a", spec.Bitrate,
		"-ar", strconv.Itoa(IntermediateSampleRate),
		"-ac", strconv.Itoa(IntermediateChannels),
	}

	if filter := FadeFilter(spec); filter != "" {
		args = append(args, "-af", filter)
	}

	return append(args, "-loglevel", "error", spec.OutputPath)
}

// FadeFilter returns the afade filter chain for spec, or "" when no fade
// is requested.
func FadeFilter(spec ConcatSpec) string {
	var filters []string
	if spec.FadeIn > 0 {
		filters = append(filters, "afade=t=in:st=0:d="+formatSeconds(spec.FadeIn))
	}
	if spec.FadeOut > 0 {
		start := spec.FadeOutStart
		if start < 0 {
			start = 0
		}
		filters = append(filters, "afade=t=out:st="+formatSeconds(start)+":d="+formatSeconds(spec.FadeOut))
	}
	return strings.Join(filters, ",")
}

// formatSeconds renders seconds with millisecond precision and no
// trailing zeros.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
