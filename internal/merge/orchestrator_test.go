package merge

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"audio-merger/internal/transcoder"
)

func writeClip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func fixedNow() time.Time {
	return time.Unix(1700000000, 0)
}

func newTestOrchestrator(fake *transcoder.Fake, cfg Config) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = fixedNow
	}
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	return New(fake, cfg)
}

// workspaces lists the workspace directories left in dir.
func workspaces(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var found []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), WorkspacePrefix) {
			found = append(found, e.Name())
		}
	}
	return found
}

func mp3Files(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"+OutputExtension))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	var out []string
	for _, m := range matches {
		if !strings.HasPrefix(filepath.Base(m), "src_") {
			out = append(out, filepath.Base(m))
		}
	}
	return out
}

func TestMergeTwoClips(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_a.mp3": 10, "src_b.wav": 10})
	a := writeClip(t, dir, "src_a.mp3", "AAAA")
	b := writeClip(t, dir, "src_b.wav", "BBBB")

	res, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), Request{
		Sources:   []string{a, b},
		OutputDir: dir,
		Bitrate:   "192k",
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if res.OutputName != "merged_audio_1700000000.mp3" {
		t.Errorf("OutputName = %s", res.OutputName)
	}
	info, err := os.Stat(res.OutputPath)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if info.Size() == 0 || info.Size() != res.SizeBytes {
		t.Errorf("size = %d, result says %d", info.Size(), res.SizeBytes)
	}
	if math.Abs(res.DurationSeconds-20) > 0.5 {
		t.Errorf("DurationSeconds = %v, want about 20", res.DurationSeconds)
	}
	if len(res.Clips) != 2 || res.Clips[0].DisplayName != "src_a.mp3" || res.Clips[1].DurationSeconds != 10 {
		t.Errorf("unexpected clips: %+v", res.Clips)
	}
	if res.Clips[0].SizeBytes != 4 {
		t.Errorf("clip size = %d, want 4", res.Clips[0].SizeBytes)
	}

	data, _ := os.ReadFile(res.OutputPath)
	if !bytes.HasPrefix(data, []byte("FAKEMP3 20 192k")) {
		t.Errorf("unexpected output header: %q", data)
	}
	if ws := workspaces(t, dir); len(ws) != 0 {
		t.Errorf("workspace left behind: %v", ws)
	}
	if n := fake.CallCount("concatenate"); n != 1 {
		t.Errorf("concatenate called %d times, want 1", n)
	}
}

func TestMergeFadeOutStartsBeforeEnd(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_1.mp3": 10, "src_2.mp3": 20, "src_3.mp3": 30})

	var got transcoder.ConcatSpec
	fake.BeforeConcatenate = func(_ context.Context, spec transcoder.ConcatSpec) error {
		got = spec
		return nil
	}

	sources := []string{
		writeClip(t, dir, "src_1.mp3", "1"),
		writeClip(t, dir, "src_2.mp3", "2"),
		writeClip(t, dir, "src_3.mp3", "3"),
	}
	res, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), Request{
		Sources:     sources,
		OutputDir:   dir,
		FadeSeconds: 2,
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if got.FadeIn != 2 || got.FadeOut != 2 {
		t.Errorf("fade in/out = %v/%v, want 2/2", got.FadeIn, got.FadeOut)
	}
	if got.FadeOutStart != 58 {
		t.Errorf("FadeOutStart = %v, want 58", got.FadeOutStart)
	}
	if got.Bitrate != DefaultBitrate {
		t.Errorf("Bitrate = %s, want default %s", got.Bitrate, DefaultBitrate)
	}
	if res.FadeSeconds != 2 {
		t.Errorf("FadeSeconds = %v", res.FadeSeconds)
	}
	data, _ := os.ReadFile(res.OutputPath)
	if !bytes.Contains(data, []byte("afade=t=out:st=58:d=2")) {
		t.Errorf("fade filter not applied: %q", data)
	}
}

func TestMergeFadeInOnlyWhenDurationUnknown(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(nil)

	var got transcoder.ConcatSpec
	fake.BeforeConcatenate = func(_ context.Context, spec transcoder.ConcatSpec) error {
		got = spec
		return nil
	}

	sources := []string{writeClip(t, dir, "src_x.ogg", "x"), writeClip(t, dir, "src_y.ogg", "y")}
	res, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), Request{
		Sources: sources, OutputDir: dir, FadeSeconds: 3,
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got.FadeIn != 3 || got.FadeOut != 0 {
		t.Errorf("fade in/out = %v/%v, want 3/0", got.FadeIn, got.FadeOut)
	}
	if res.DurationSeconds != 0 {
		t.Errorf("DurationSeconds = %v, want 0", res.DurationSeconds)
	}
	for _, c := range res.Clips {
		if c.DurationSeconds != 0 {
			t.Errorf("clip %s duration = %v, want 0", c.DisplayName, c.DurationSeconds)
		}
	}
}

func TestMergeFadeInOnlyWhenOneDurationUnknown(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_1.mp3": 10, "src_3.mp3": 50})

	var got transcoder.ConcatSpec
	fake.BeforeConcatenate = func(_ context.Context, spec transcoder.ConcatSpec) error {
		got = spec
		return nil
	}

	sources := []string{
		writeClip(t, dir, "src_1.mp3", "1"),
		writeClip(t, dir, "src_2.mp3", "2"),
		writeClip(t, dir, "src_3.mp3", "3"),
	}
	res, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), Request{
		Sources: sources, OutputDir: dir, FadeSeconds: 2,
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if got.FadeIn != 2 || got.FadeOut != 0 || got.FadeOutStart != 0 {
		t.Errorf("fade in/out/start = %v/%v/%v, want 2/0/0", got.FadeIn, got.FadeOut, got.FadeOutStart)
	}
	data, _ := os.ReadFile(res.OutputPath)
	if bytes.Contains(data, []byte("afade=t=out")) {
		t.Errorf("fade-out applied with a partial total: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
	if !bytes.Contains(data, []byte("afade=t=in:st=0:d=2")) {
		t.Errorf("fade-in missing: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestMergeSingleClipRejected(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_a.mp3": 5})
	a := writeClip(t, dir, "src_a.mp3", "A")

	res, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), Request{
		Sources: []string{a}, OutputDir: dir,
	})
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	me, ok := AsError(err)
	if !ok || me.Stage != StageIdle {
		t.Errorf("expected failure in idle stage, got %+v", me)
	}
	if ws := workspaces(t, dir); len(ws) != 0 {
		t.Errorf("workspace created for invalid request: %v", ws)
	}
	if len(fake.Calls()) != 0 {
		t.Errorf("tool invoked for invalid request: %+v", fake.Calls())
	}
}

func TestMergeNormalizeTimeout(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_a.mp3": 5, "src_b.mp3": 5})
	fake.BeforeNormalize = func(ctx context.Context, spec transcoder.NormalizeSpec) error {
		if filepath.Base(spec.InputPath) == "src_b.mp3" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	sources := []string{writeClip(t, dir, "src_a.mp3", "A"), writeClip(t, dir, "src_b.mp3", "B")}
	o := newTestOrchestrator(fake, Config{NormalizeTimeout: 50 * time.Millisecond})
	_, err := o.Merge(context.Background(), Request{Sources: sources, OutputDir: dir})

	if !errors.Is(err, ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected cause to be DeadlineExceeded, got %v", err)
	}
	me, _ := AsError(err)
	if me.Stage != StageNormalizing {
		t.Errorf("Stage = %s, want normalizing", me.Stage)
	}
	if !strings.Contains(me.Reason, "clip 2") {
		t.Errorf("Reason should name the clip position: %q", me.Reason)
	}
	if out := mp3Files(t, dir); len(out) != 0 {
		t.Errorf("output published after failure: %v", out)
	}
	if ws := workspaces(t, dir); len(ws) != 0 {
		t.Errorf("workspace left behind: %v", ws)
	}
	if n := fake.CallCount("concatenate"); n != 0 {
		t.Errorf("concatenate ran after a failed normalization")
	}
}

func TestMergePreservesRequestOrder(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_a.mp3": 1, "src_b.mp3": 2, "src_c.mp3": 3})
	paths := map[string]string{
		"A": writeClip(t, dir, "src_a.mp3", "A"),
		"B": writeClip(t, dir, "src_b.mp3", "B"),
		"C": writeClip(t, dir, "src_c.mp3", "C"),
	}
	orders := []string{"ABC", "ACB", "BAC", "BCA", "CAB", "CBA", "AAB", "BAB"}

	o := newTestOrchestrator(fake, Config{Workers: 3})
	for i, order := range orders {
		t.Run(order, func(t *testing.T) {
			var sources []string
			for _, r := range order {
				sources = append(sources, paths[string(r)])
			}
			res, err := o.Merge(context.Background(), Request{
				Sources:    sources,
				OutputDir:  dir,
				OutputName: "order_" + strings.Repeat("x", i+1) + ".mp3",
			})
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			data, err := os.ReadFile(res.OutputPath)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(transcoder.FakePayload(data)); got != order {
				t.Errorf("payload = %q, want %q", got, order)
			}
			for j, c := range res.Clips {
				if c.SourcePath != sources[j] {
					t.Errorf("clip %d = %s, want %s", j, c.SourcePath, sources[j])
				}
			}
		})
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_a.flac": 7})
	src := writeClip(t, dir, "src_a.flac", "some audio bytes")
	n := NewNormalizer(fake, time.Second)

	var sizes []int64
	for i := 0; i < 2; i++ {
		ws, err := AcquireWorkspace(dir)
		if err != nil {
			t.Fatal(err)
		}
		out, err := n.Normalize(context.Background(), src, ws, 0)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		info, err := os.Stat(out)
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, info.Size())
		ws.Release()
	}
	if sizes[0] != sizes[1] {
		t.Errorf("normalizing twice gave %d and %d bytes", sizes[0], sizes[1])
	}
}

func TestMergeEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_a.mp3": 1, "src_b.mp3": 1})
	fake.EmptyConcatOutput = true
	sources := []string{writeClip(t, dir, "src_a.mp3", "A"), writeClip(t, dir, "src_b.mp3", "B")}

	_, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), Request{Sources: sources, OutputDir: dir})
	if !errors.Is(err, ErrEmptyOutput) {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}
	if me, _ := AsError(err); me.Stage != StageConcatenating {
		t.Errorf("Stage = %s, want concatenating", me.Stage)
	}
	if out := mp3Files(t, dir); len(out) != 0 {
		t.Errorf("empty output published: %v", out)
	}
	if ws := workspaces(t, dir); len(ws) != 0 {
		t.Errorf("workspace left behind: %v", ws)
	}
}

func TestMergeEmptyIntermediate(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(nil)
	fake.EmptyNormalizeOutput = true
	sources := []string{writeClip(t, dir, "src_a.mp3", "A"), writeClip(t, dir, "src_b.mp3", "B")}

	_, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), Request{Sources: sources, OutputDir: dir})
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
}

func TestMergeConcatenationFailure(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(nil)
	toolErr := &transcoder.ExecError{Op: "concatenate", Err: errors.New("exit status 1"), Stderr: "Invalid data found"}
	fake.BeforeConcatenate = func(context.Context, transcoder.ConcatSpec) error { return toolErr }
	sources := []string{writeClip(t, dir, "src_a.mp3", "A"), writeClip(t, dir, "src_b.mp3", "B")}

	_, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), Request{Sources: sources, OutputDir: dir})
	if !errors.Is(err, ErrConcatenation) {
		t.Fatalf("expected ErrConcatenation, got %v", err)
	}
	var execErr *transcoder.ExecError
	if !errors.As(err, &execErr) || execErr.Stderr != "Invalid data found" {
		t.Errorf("expected underlying ExecError, got %v", err)
	}
	me, _ := AsError(err)
	if strings.Contains(me.Reason, dir) {
		t.Errorf("Reason leaks a path: %q", me.Reason)
	}
	if ws := workspaces(t, dir); len(ws) != 0 {
		t.Errorf("workspace left behind: %v", ws)
	}
}

func TestMergeTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*transcoder.Fake)
		want  []Stage
	}{
		{
			name:  "success",
			setup: func(*transcoder.Fake) {},
			want:  []Stage{StageNormalizing, StageManifestBuilt, StageConcatenating, StageVerified},
		},
		{
			name:  "conversion failure",
			setup: func(f *transcoder.Fake) { f.EmptyNormalizeOutput = true },
			want:  []Stage{StageNormalizing, StageFailed},
		},
		{
			name:  "empty output",
			setup: func(f *transcoder.Fake) { f.EmptyConcatOutput = true },
			want:  []Stage{StageNormalizing, StageManifestBuilt, StageConcatenating, StageFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			fake := transcoder.NewFake(nil)
			tt.setup(fake)

			var mu sync.Mutex
			var seen []Transition
			o := newTestOrchestrator(fake, Config{Observer: func(tr Transition) {
				mu.Lock()
				seen = append(seen, tr)
				mu.Unlock()
			}})
			sources := []string{writeClip(t, dir, "src_a.mp3", "A"), writeClip(t, dir, "src_b.mp3", "B")}
			o.Merge(context.Background(), Request{Sources: sources, OutputDir: dir})

			if len(seen) != len(tt.want) {
				t.Fatalf("got %d transitions %+v, want %v", len(seen), seen, tt.want)
			}
			prev := StageIdle
			for i, tr := range seen {
				if tr.From != prev || tr.To != tt.want[i] {
					t.Errorf("transition %d = %s -> %s, want %s -> %s", i, tr.From, tr.To, prev, tt.want[i])
				}
				if tr.MergeID != seen[0].MergeID {
					t.Errorf("merge ID changed mid-run")
				}
				prev = tr.To
			}
		})
	}
}

func TestMergeValidation(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "src_a.mp3", "A")
	b := writeClip(t, dir, "src_b.mp3", "B")
	writeClip(t, dir, "taken.mp3", "old")

	tests := []struct {
		name string
		req  Request
	}{
		{"no sources", Request{OutputDir: dir}},
		{"missing clip", Request{Sources: []string{a, filepath.Join(dir, "nope.mp3")}, OutputDir: dir}},
		{"directory as clip", Request{Sources: []string{a, dir}, OutputDir: dir}},
		{"missing output dir", Request{Sources: []string{a, b}, OutputDir: filepath.Join(dir, "missing")}},
		{"malformed bitrate", Request{Sources: []string{a, b}, OutputDir: dir, Bitrate: "fast"}},
		{"bitrate too high", Request{Sources: []string{a, b}, OutputDir: dir, Bitrate: "999k"}},
		{"bitrate too low", Request{Sources: []string{a, b}, OutputDir: dir, Bitrate: "16k"}},
		{"negative fade", Request{Sources: []string{a, b}, OutputDir: dir, FadeSeconds: -1}},
		{"NaN fade", Request{Sources: []string{a, b}, OutputDir: dir, FadeSeconds: math.NaN()}},
		{"infinite fade", Request{Sources: []string{a, b}, OutputDir: dir, FadeSeconds: math.Inf(1)}},
		{"output name with dir", Request{Sources: []string{a, b}, OutputDir: dir, OutputName: "../x.mp3"}},
		{"output name wrong ext", Request{Sources: []string{a, b}, OutputDir: dir, OutputName: "x.wav"}},
		{"output name exists", Request{Sources: []string{a, b}, OutputDir: dir, OutputName: "taken.mp3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := transcoder.NewFake(nil)
			_, err := newTestOrchestrator(fake, Config{}).Merge(context.Background(), tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if me, _ := AsError(err); strings.Contains(me.Reason, dir) {
				t.Errorf("Reason leaks a path: %q", me.Reason)
			}
			if len(fake.Calls()) != 0 {
				t.Errorf("tool invoked: %+v", fake.Calls())
			}
		})
	}

	if data, _ := os.ReadFile(filepath.Join(dir, "taken.mp3")); string(data) != "old" {
		t.Errorf("existing output was modified: %q", data)
	}
}

func TestMergeNameCollision(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_a.mp3": 1, "src_b.mp3": 1})
	sources := []string{writeClip(t, dir, "src_a.mp3", "A"), writeClip(t, dir, "src_b.mp3", "B")}
	existing := writeClip(t, dir, "merged_audio_1700000000.mp3", "previous")

	o := newTestOrchestrator(fake, Config{})
	first, err := o.Merge(context.Background(), Request{Sources: sources, OutputDir: dir})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	second, err := o.Merge(context.Background(), Request{Sources: sources, OutputDir: dir})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if first.OutputName != "merged_audio_1700000000_1.mp3" {
		t.Errorf("first OutputName = %s", first.OutputName)
	}
	if second.OutputName != "merged_audio_1700000000_2.mp3" {
		t.Errorf("second OutputName = %s", second.OutputName)
	}
	if data, _ := os.ReadFile(existing); string(data) != "previous" {
		t.Errorf("existing artifact was overwritten: %q", data)
	}
	if first.ID == second.ID {
		t.Errorf("merge IDs must be unique")
	}
}

func TestMergeConcurrent(t *testing.T) {
	dir := t.TempDir()
	fake := transcoder.NewFake(map[string]float64{"src_a.mp3": 1, "src_b.mp3": 1})
	sources := []string{writeClip(t, dir, "src_a.mp3", "A"), writeClip(t, dir, "src_b.mp3", "B")}
	o := newTestOrchestrator(fake, Config{})

	const n = 5
	var wg sync.WaitGroup
	errs := make(chan error, n)
	names := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := o.Merge(context.Background(), Request{Sources: sources, OutputDir: dir})
			if err != nil {
				errs <- err
				return
			}
			names <- res.OutputName
		}()
	}
	wg.Wait()
	close(errs)
	close(names)

	for err := range errs {
		t.Errorf("concurrent merge failed: %v", err)
	}
	seen := make(map[string]bool)
	for name := range names {
		if seen[name] {
			t.Errorf("duplicate output name %s", name)
		}
		seen[name] = true
	}
	if ws := workspaces(t, dir); len(ws) != 0 {
		t.Errorf("workspace left behind: %v", ws)
	}
}
