package merge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"audio-merger/internal/logging"
	"audio-merger/internal/metrics"
	"audio-merger/internal/transcoder"
	"audio-merger/internal/workers"
)

const (
	// MinClips is the smallest number of clips a merge accepts.
	MinClips = 2

	// DefaultBitrate is used when neither the request nor the config names one.
	DefaultBitrate = "192k"

	// DefaultOutputPrefix starts every generated artifact name.
	DefaultOutputPrefix = "merged_audio_"

	// OutputExtension is the extension of every merge artifact.
	OutputExtension = ".mp3"

	mergedName = "merged" + OutputExtension
)

var bitratePattern = regexp.MustCompile(`^[0-9]{2,3}k$`)

// Config holds the tunables of an Orchestrator.
type Config struct {
	// Workers bounds concurrent normalizations. Zero uses workers.ForCPU(4).
	Workers          int
	ProbeTimeout     time.Duration
	NormalizeTimeout time.Duration
	ConcatTimeout    time.Duration
	DefaultBitrate   string
	OutputPrefix     string

	// Now returns the time used for generated artifact names.
	Now func() time.Time
	// Observer, if set, is called synchronously on every stage change.
	Observer func(Transition)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:     30 * time.Second,
		NormalizeTimeout: 5 * time.Minute,
		ConcatTimeout:    10 * time.Minute,
		DefaultBitrate:   DefaultBitrate,
		OutputPrefix:     DefaultOutputPrefix,
		Now:              time.Now,
	}
}

// Orchestrator runs merges. It keeps no per-merge state, so one value can
// serve concurrent merges.
type Orchestrator struct {
	cfg          Config
	probe        *MediaProbe
	normalizer   *Normalizer
	concatenator *Concatenator
}

// New creates an Orchestrator over tool. Zero fields of cfg take their
// DefaultConfig values.
func New(tool transcoder.Tool, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = workers.ForCPU(4)
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.NormalizeTimeout <= 0 {
		cfg.NormalizeTimeout = def.NormalizeTimeout
	}
	if cfg.ConcatTimeout <= 0 {
		cfg.ConcatTimeout = def.ConcatTimeout
	}
	if cfg.DefaultBitrate == "" {
		cfg.DefaultBitrate = def.DefaultBitrate
	}
	if cfg.OutputPrefix == "" {
		cfg.OutputPrefix = def.OutputPrefix
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}

	return &Orchestrator{
		cfg:          cfg,
		probe:        NewMediaProbe(tool, cfg.ProbeTimeout),
		normalizer:   NewNormalizer(tool, cfg.NormalizeTimeout),
		concatenator: NewConcatenator(tool, cfg.ConcatTimeout),
	}
}

// Probe exposes the orchestrator's MediaProbe.
func (o *Orchestrator) Probe() *MediaProbe {
	return o.probe
}

// ValidateBitrate reports whether bitrate is an accepted MP3 bitrate such
// as "192k".
func ValidateBitrate(bitrate string) error {
	if !bitratePattern.MatchString(bitrate) {
		return validationError("invalid bitrate %q, expected a value like 192k", bitrate)
	}
	kbps, _ := strconv.Atoi(strings.TrimSuffix(bitrate, "k"))
	if kbps < 32 || kbps > 320 {
		return validationError("bitrate %s is out of range (32k to 320k)", bitrate)
	}
	return nil
}

// run tracks the state of one merge.
type run struct {
	o          *Orchestrator
	id         string
	log        logging.Scoped
	stage      Stage
	started    time.Time
	stageStart time.Time
}

func (r *run) enter(next Stage) {
	now := time.Now()
	elapsed := now.Sub(r.stageStart)
	if r.stage != StageVerified && r.stage != StageFailed {
		metrics.MergeStageDuration.WithLabelValues(string(r.stage)).Observe(elapsed.Seconds())
	}
	r.log.Debug("%s -> %s (%v)", r.stage, next, elapsed)
	if r.o.cfg.Observer != nil {
		r.o.cfg.Observer(Transition{MergeID: r.id, From: r.stage, To: next, Elapsed: elapsed})
	}
	r.stage = next
	r.stageStart = now
}

func (r *run) fail(err error) error {
	me, ok := AsError(err)
	if !ok {
		me = &Error{Stage: r.stage, Kind: ErrConversion, Reason: "internal error", Err: err}
	}
	metrics.MergesTotal.WithLabelValues("failed").Inc()
	metrics.MergeFailuresTotal.WithLabelValues(string(me.Stage), me.KindName()).Inc()
	r.log.Error("Merge failed: %v", me)
	r.enter(StageFailed)
	return me
}

// Merge runs the pipeline for req and returns the published artifact.
// Every failure is a *Error. The workspace is removed before Merge returns.
func (o *Orchestrator) Merge(ctx context.Context, req Request) (*Result, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	r := &run{o: o, id: id, stage: StageIdle, started: now, stageStart: now}
	r.log = logging.Merge(r.id)

	req, outputName, exact, err := o.validate(req)
	if err != nil {
		return nil, r.fail(err)
	}
	r.log.Info("Merging %d clips (session=%s bitrate=%s fade=%gs)", len(req.Sources), req.SessionID, req.Bitrate, req.FadeSeconds)

	metrics.MergesInProgress.Inc()
	defer metrics.MergesInProgress.Dec()
	metrics.MergeClipsPerRequest.Observe(float64(len(req.Sources)))

	r.enter(StageNormalizing)
	ws, err := AcquireWorkspace(req.OutputDir)
	if err != nil {
		return nil, r.fail(&Error{Stage: StageNormalizing, Kind: ErrConversion, Reason: "could not prepare workspace", Err: err})
	}
	defer ws.Release()

	clips, intermediates, err := o.normalizeAll(ctx, req.Sources, ws)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(StageManifestBuilt)
	manifest, err := WriteManifest(ws.Path(), intermediates)
	if err != nil {
		return nil, r.fail(&Error{Stage: StageManifestBuilt, Kind: ErrConcatenation, Reason: "could not build clip list", Err: err})
	}

	r.enter(StageConcatenating)
	total, unknown := totalDuration(clips)
	if req.FadeSeconds > 0 && unknown >= 0 {
		r.log.Warn("Clip %d (%s) has no duration, applying fade-in only", unknown+1, clips[unknown].DisplayName)
	}
	merged := ws.File(mergedName)
	size, err := o.concatenator.Concatenate(ctx, manifest, merged, req.Bitrate, req.FadeSeconds, total)
	if err != nil {
		return nil, r.fail(err)
	}

	duration := o.probe.Duration(ctx, merged)
	if duration <= 0 {
		duration = total
	}

	finalPath, err := publish(merged, req.OutputDir, outputName, exact)
	if err != nil {
		return nil, r.fail(&Error{Stage: StageConcatenating, Kind: ErrConcatenation, Reason: "could not publish merged file", Err: err})
	}

	r.enter(StageVerified)
	elapsed := time.Since(r.started)
	metrics.MergesTotal.WithLabelValues("success").Inc()
	metrics.MergeDuration.Observe(elapsed.Seconds())
	metrics.MergeOutputBytes.Add(float64(size))
	r.log.Info("Merged %d clips into %s (%d bytes, %.1fs) in %v", len(clips), filepath.Base(finalPath), size, duration, elapsed)

	return &Result{
		ID:              r.id,
		OutputPath:      finalPath,
		OutputName:      filepath.Base(finalPath),
		SizeBytes:       size,
		DurationSeconds: duration,
		Bitrate:         req.Bitrate,
		FadeSeconds:     req.FadeSeconds,
		Clips:           clips,
		Elapsed:         elapsed,
	}, nil
}

// validate checks req without touching the output directory beyond stat
// calls. It returns the normalized request and the output name to publish
// under.
func (o *Orchestrator) validate(req Request) (Request, string, bool, error) {
	if len(req.Sources) < MinClips {
		return req, "", false, validationError("at least %d files are required to merge, got %d", MinClips, len(req.Sources))
	}
	for i, src := range req.Sources {
		info, err := os.Stat(src)
		if err != nil {
			return req, "", false, validationError("clip %d (%s) not found", i+1, filepath.Base(src))
		}
		if !info.Mode().IsRegular() {
			return req, "", false, validationError("clip %d (%s) is not a regular file", i+1, filepath.Base(src))
		}
	}

	info, err := os.Stat(req.OutputDir)
	if err != nil || !info.IsDir() {
		return req, "", false, validationError("output directory is not available")
	}

	if req.Bitrate == "" {
		req.Bitrate = o.cfg.DefaultBitrate
	}
	if err := ValidateBitrate(req.Bitrate); err != nil {
		return req, "", false, err
	}

	if math.IsNaN(req.FadeSeconds) || math.IsInf(req.FadeSeconds, 0) || req.FadeSeconds < 0 {
		return req, "", false, validationError("fade duration must be a non-negative number")
	}

	if req.OutputName != "" {
		name := req.OutputName
		if filepath.Base(name) != name || strings.HasPrefix(name, ".") {
			return req, "", false, validationError("invalid output name %q", name)
		}
		if !strings.EqualFold(filepath.Ext(name), OutputExtension) {
			return req, "", false, validationError("output name must end in %s", OutputExtension)
		}
		if _, err := os.Lstat(filepath.Join(req.OutputDir, name)); err == nil {
			return req, "", false, validationError("output %s already exists", name)
		}
		return req, name, true, nil
	}

	name := fmt.Sprintf("%s%d%s", o.cfg.OutputPrefix, o.cfg.Now().Unix(), OutputExtension)
	return req, name, false, nil
}

// normalizeAll converts every source into ws, preserving request order in
// the returned slices.
func (o *Orchestrator) normalizeAll(ctx context.Context, sources []string, ws *Workspace) ([]Clip, []string, error) {
	clips := make([]Clip, len(sources))
	intermediates := make([]string, len(sources))

	err := workers.Run(ctx, o.cfg.Workers, len(sources), func(ctx context.Context, i int) error {
		out, err := o.normalizer.Normalize(ctx, sources[i], ws, i)
		if err != nil {
			return err
		}
		var size int64
		if info, err := os.Stat(sources[i]); err == nil {
			size = info.Size()
		}
		clips[i] = Clip{
			SourcePath:      sources[i],
			DisplayName:     filepath.Base(sources[i]),
			SizeBytes:       size,
			DurationSeconds: o.probe.Duration(ctx, out),
		}
		intermediates[i] = out
		return nil
	})
	if err != nil {
		if _, ok := AsError(err); ok {
			return nil, nil, err
		}
		reason := "conversion cancelled"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "conversion timed out"
		}
		return nil, nil, &Error{Stage: StageNormalizing, Kind: ErrConversion, Reason: reason, Err: err}
	}
	return clips, intermediates, nil
}

// totalDuration sums the clip durations. It is 0 when any clip could not
// be probed, along with the index of the first such clip; otherwise the
// index is -1.
func totalDuration(clips []Clip) (float64, int) {
	var total float64
	for i, c := range clips {
		if c.DurationSeconds <= 0 {
			return 0, i
		}
		total += c.DurationSeconds
	}
	return total, -1
}
