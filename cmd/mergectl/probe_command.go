package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"audio-merger/internal/transcoder"
)

type probeResult struct {
	File      string                `json:"file"`
	SizeBytes int64                 `json:"size_bytes"`
	Info      *transcoder.ProbeInfo `json:"info,omitempty"`
	Error     string                `json:"error,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Show duration and stream details of audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := probeFiles(cmd.Context(), ctx.tool(), args, timeout)

			if ctx.jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderProbeTable(results))
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be probed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout per file")
	return cmd
}

func probeFiles(ctx context.Context, tool transcoder.Tool, paths []string, timeout time.Duration) []probeResult {
	results := make([]probeResult, 0, len(paths))
	for _, path := range paths {
		r := probeResult{File: path}
		if info, err := os.Stat(path); err == nil {
			r.SizeBytes = info.Size()
		}

		pctx, cancel := context.WithTimeout(ctx, timeout)
		info, err := tool.Probe(pctx, path)
		cancel()
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Info = info
		}
		results = append(results, r)
	}
	return results
}

func renderProbeTable(results []probeResult) string {
	headers := []string{"File", "Format", "Codec", "Duration", "Sample Rate", "Channels", "Size"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		size := humanize.Bytes(uint64(r.SizeBytes))
		if r.Info == nil {
			rows = append(rows, []string{filepath.Base(r.File), "error", r.Error, "", "", "", size})
			continue
		}
		rows = append(rows, []string{
			filepath.Base(r.File),
			r.Info.FormatName,
			r.Info.Codec,
			formatSeconds(r.Info.Duration),
			formatCount(r.Info.SampleRate),
			formatCount(r.Info.Channels),
			size,
		})
	}
	return renderTable(headers, rows, aligns)
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds * float64(time.Second))).Round(100 * time.Millisecond).String()
}

func formatCount(n int) string {
	if n <= 0 {
		return "-"
	}
	return strconv.Itoa(n)
}
