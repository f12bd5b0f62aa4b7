package transcoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoDuration is returned when ffprobe output carries no usable duration.
var ErrNoDuration = errors.New("no duration in probe output")

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
}

// ParseProbe converts raw ffprobe JSON into a ProbeInfo.
//
// The container duration is preferred; when it is missing the first audio
// stream's duration is used. ErrNoDuration is returned when neither is a
// positive number.
func ParseProbe(data []byte) (*ProbeInfo, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	info := &ProbeInfo{
		FormatName: raw.Format.FormatName,
		BitRate:    parseInt64(raw.Format.BitRate),
		Duration:   parseFloat(raw.Format.Duration),
	}

	for _, s := range raw.Streams {
		if !strings.EqualFold(s.CodecType, "audio") {
			continue
		}
		info.Codec = s.CodecName
		info.SampleRate = int(parseInt64(s.SampleRate))
		info.Channels = s.Channels
		if info.Duration <= 0 {
			info.Duration = parseFloat(s.Duration)
		}
		break
	}

	if info.Duration <= 0 {
		return info, ErrNoDuration
	}
	return info, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
