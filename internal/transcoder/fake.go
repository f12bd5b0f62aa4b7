package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Headers written by Fake so that Probe can recover durations from the
// files it produced.
const (
	fakePCMHeader = "FAKEPCM"
	fakeMP3Header = "FAKEMP3"
)

// ErrFakeUnknownDuration is returned by Fake.Probe for files it has no
// duration for.
var ErrFakeUnknownDuration = errors.New("fake: unknown duration")

// FakeCall records one invocation of a Fake method.
type FakeCall struct {
	Op     string
	Input  string
	Output string
}

// Fake is a deterministic stand-in for FFmpeg.
//
// Normalize writes a small header carrying the source duration followed by
// the source bytes. Concatenate writes a header with the summed duration,
// bitrate and fade filter followed by the normalized payloads in manifest
// order, so tests can check ordering by content.
type Fake struct {
	// Durations maps source base names to their duration in seconds.
	Durations map[string]float64

	// BeforeNormalize and BeforeConcatenate run first; a non-nil error is
	// returned without writing any output.
	BeforeNormalize   func(ctx context.Context, spec NormalizeSpec) error
	BeforeConcatenate func(ctx context.Context, spec ConcatSpec) error

	// EmptyNormalizeOutput and EmptyConcatOutput make the respective step
	// succeed while leaving a zero-byte file.
	EmptyNormalizeOutput bool
	EmptyConcatOutput    bool

	mu    sync.Mutex
	calls []FakeCall
}

var _ Tool = (*Fake)(nil)

// NewFake returns a Fake that knows the given durations.
func NewFake(durations map[string]float64) *Fake {
	if durations == nil {
		durations = make(map[string]float64)
	}
	return &Fake{Durations: durations}
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// CallCount returns how many times op was invoked.
func (f *Fake) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *Fake) record(op, in, out string) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Op: op, Input: in, Output: out})
	f.mu.Unlock()
}

func (f *Fake) duration(name string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.Durations[filepath.Base(name)]
	return d, ok
}

// Probe returns the duration recorded in a Fake header, or the configured
// duration for the base name.
func (f *Fake) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	f.record("probe", path, "")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if d, format, ok := parseFakeHeader(data); ok {
		return &ProbeInfo{Duration: d, FormatName: format, SampleRate: IntermediateSampleRate, Channels: IntermediateChannels}, nil
	}
	if d, ok := f.duration(path); ok && d > 0 {
		return &ProbeInfo{Duration: d, FormatName: filepath.Ext(path)}, nil
	}
	return nil, ErrFakeUnknownDuration
}

// Normalize writes the fake PCM intermediate.
func (f *Fake) Normalize(ctx context.Context, spec NormalizeSpec) error {
	f.record("normalize", spec.InputPath, spec.OutputPath)
	if f.BeforeNormalize != nil {
		if err := f.BeforeNormalize(ctx, spec); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.ReadFile(spec.InputPath)
	if err != nil {
		return &ExecError{Op: "normalize", Err: err}
	}
	if f.EmptyNormalizeOutput {
		return os.WriteFile(spec.OutputPath, nil, 0o644)
	}

	d, _ := f.duration(spec.InputPath)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s\n", fakePCMHeader, formatSeconds(d))
	buf.Write(src)
	return os.WriteFile(spec.OutputPath, buf.Bytes(), 0o644)
}

// Concatenate joins the manifest entries into the fake MP3 output.
func (f *Fake) Concatenate(ctx context.Context, spec ConcatSpec) error {
	f.record("concatenate", spec.ManifestPath, spec.OutputPath)
	if f.BeforeConcatenate != nil {
		if err := f.BeforeConcatenate(ctx, spec); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	list, err := os.ReadFile(spec.ManifestPath)
	if err != nil {
		return &ExecError{Op: "concatenate", Err: err}
	}
	paths, err := ParseConcatList(list)
	if err != nil {
		return &ExecError{Op: "concatenate", Err: err}
	}

	var total float64
	var body bytes.Buffer
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return &ExecError{Op: "concatenate", Err: err}
		}
		d, _, _ := parseFakeHeader(data)
		total += d
		body.Write(stripFakeHeader(data))
	}

	if f.EmptyConcatOutput {
		return os.WriteFile(spec.OutputPath, nil, 0o644)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "%s %s %s %s\n", fakeMP3Header, formatSeconds(total), spec.Bitrate, FadeFilter(spec))
	out.Write(body.Bytes())
	return os.WriteFile(spec.OutputPath, out.Bytes(), 0o644)
}

// FakePayload returns the concatenated source bytes of a file written by
// Fake, without its header.
func FakePayload(data []byte) []byte {
	return stripFakeHeader(data)
}

func parseFakeHeader(data []byte) (float64, string, bool) {
	line, _, ok := bytes.Cut(data, []byte("\n"))
	if !ok {
		return 0, "", false
	}
	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return 0, "", false
	}
	var format string
	switch string(fields[0]) {
	case fakePCMHeader:
		format = "wav"
	case fakeMP3Header:
		format = "mp3"
	default:
		return 0, "", false
	}
	d, err := strconv.ParseFloat(string(fields[1]), 64)
	if err != nil {
		return 0, "", false
	}
	return d, format, true
}

func stripFakeHeader(data []byte) []byte {
	if _, _, ok := parseFakeHeader(data); !ok {
		return data
	}
	_, rest, _ := bytes.Cut(data, []byte("\n"))
	return rest
}
