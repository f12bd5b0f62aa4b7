package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"audio-merger/internal/logging"
	"audio-merger/internal/metrics"
)

// waitDelay bounds how long Wait blocks on pipes after a killed process.
const waitDelay = 5 * time.Second

// stderrTail limits how much ffmpeg stderr is kept in errors.
const stderrTail = 2048

// ExecError reports a failed ffmpeg or ffprobe invocation.
type ExecError struct {
	Op     string
	Err    error
	Stderr string
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Stderr)
}

func (e *ExecError) Unwrap() error { return e.Err }

// FFmpeg runs the real ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string

	processes map[int64]*exec.Cmd
	nextID    int64
	processMu sync.Mutex
}

var _ Tool = (*FFmpeg)(nil)

// New creates an FFmpeg tool. Empty paths default to the binaries on PATH.
func New(ffmpegPath, ffprobePath string) *FFmpeg {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		processes:   make(map[int64]*exec.Cmd),
	}
}

// Version returns the first line of `ffmpeg -version`.
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return "", fmt.Errorf("%s not found in PATH", f.ffmpegPath)
	}
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return "", fmt.Errorf("%s not found in PATH", f.ffprobePath)
	}

	out, err := exec.CommandContext(ctx, f.ffmpegPath, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// Probe runs ffprobe against path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	stdout, err := f.run(ctx, "probe", f.ffprobePath, probeArgs(path))
	if err != nil {
		return nil, err
	}
	return ParseProbe(stdout)
}

// Normalize converts spec.InputPath to the canonical WAV intermediate.
func (f *FFmpeg) Normalize(ctx context.Context, spec NormalizeSpec) error {
	_, err := f.run(ctx, "normalize", f.ffmpegPath, normalizeArgs(spec))
	return err
}

// Concatenate joins the manifest entries into spec.OutputPath.
func (f *FFmpeg) Concatenate(ctx context.Context, spec ConcatSpec) error {
	args := concatArgs(spec)
	logging.Debug("ffmpeg concat command: %s %s", f.ffmpegPath, strings.Join(args, " "))
	_, err := f.run(ctx, "concatenate", f.ffmpegPath, args)
	return err
}

// run executes one tracked subprocess and returns its stdout.
func (f *FFmpeg) run(ctx context.Context, op, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.ToolInvocationsTotal.WithLabelValues(op, "error").Inc()
		return nil, &ExecError{Op: op, Err: fmt.Errorf("failed to start %s: %w", binary, err)}
	}

	id := f.track(cmd)
	defer f.untrack(id)

	err := cmd.Wait()
	metrics.ToolInvocationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		status := "error"
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				status = "timeout"
			}
		}
		metrics.ToolInvocationsTotal.WithLabelValues(op, status).Inc()
		return nil, &ExecError{Op: op, Err: err, Stderr: tail(stderr.String(), stderrTail)}
	}

	metrics.ToolInvocationsTotal.WithLabelValues(op, "success").Inc()
	return stdout.Bytes(), nil
}

func (f *FFmpeg) track(cmd *exec.Cmd) int64 {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	f.nextID++
	f.processes[f.nextID] = cmd
	return f.nextID
}

func (f *FFmpeg) untrack(id int64) {
	f.processMu.Lock()
	delete(f.processes, id)
	f.processMu.Unlock()
}

// Running returns the number of subprocesses currently executing.
func (f *FFmpeg) Running() int {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	return len(f.processes)
}

// Cleanup kills every running subprocess.
func (f *FFmpeg) Cleanup() {
	f.processMu.Lock()
	defer f.processMu.Unlock()

	for id, cmd := range f.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffmpeg process %d (pid %d)", id, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process %d: %v", id, err)
			}
		}
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
