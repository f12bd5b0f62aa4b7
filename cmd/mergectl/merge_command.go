package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"audio-merger/internal/merge"
)

type mergeOptions struct {
	output     string
	bitrate    string
	fade       float64
	workers    int
	config     merge.Config
	showStages bool
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	opts := mergeOptions{config: merge.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "merge [flags] <clip> <clip>...",
		Short: "Merge clips into one MP3 in the given order",
		Args:  cobra.MinimumNArgs(merge.MinClips),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, ctx, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Output file (default: merged_audio_<unix>.mp3 in the current directory)")
	flags.StringVarP(&opts.bitrate, "bitrate", "b", merge.DefaultBitrate, "MP3 bitrate, 32k to 320k")
	flags.Float64Var(&opts.fade, "fade", 0, "Fade-in and fade-out length in seconds")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Concurrent normalizations (default: CPU count, at most 4)")
	flags.DurationVar(&opts.config.ProbeTimeout, "probe-timeout", opts.config.ProbeTimeout, "Timeout per probe")
	flags.DurationVar(&opts.config.NormalizeTimeout, "normalize-timeout", opts.config.NormalizeTimeout, "Timeout per clip conversion")
	flags.DurationVar(&opts.config.ConcatTimeout, "concat-timeout", opts.config.ConcatTimeout, "Timeout of the final encode")
	flags.BoolVarP(&opts.showStages, "verbose", "v", false, "Print stage transitions to stderr")
	return cmd
}

func runMerge(cmd *cobra.Command, ctx *commandContext, opts mergeOptions, args []string) error {
	cfg := opts.config
	cfg.Workers = opts.workers
	if opts.showStages {
		stderr := cmd.ErrOrStderr()
		cfg.Observer = func(t merge.Transition) {
			fmt.Fprintf(stderr, "%s -> %s (%v)\n", t.From, t.To, t.Elapsed.Round(time.Millisecond))
		}
	}
	orch := merge.New(ctx.tool(), cfg)

	req := merge.Request{
		Sources:     args,
		OutputDir:   ".",
		Bitrate:     opts.bitrate,
		FadeSeconds: opts.fade,
	}
	if opts.output != "" {
		req.OutputDir = filepath.Dir(opts.output)
		req.OutputName = filepath.Base(opts.output)
	}

	result, err := orch.Merge(cmd.Context(), req)
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if err != nil {
		if ctx.jsonOutput {
			_ = writeJSON(cmd, mergeFailureJSON(err))
		} else {
			printMergeFailure(out, err, colorize)
		}
		return err
	}

	if ctx.jsonOutput {
		return writeJSON(cmd, result)
	}
	printMergeResult(out, result, colorize)
	return nil
}

func mergeFailureJSON(err error) map[string]string {
	me, ok := merge.AsError(err)
	if !ok {
		return map[string]string{"error": err.Error()}
	}
	return map[string]string{"error": me.Reason, "stage": string(me.Stage), "kind": me.KindName()}
}

func printMergeFailure(w io.Writer, err error, colorize bool) {
	me, ok := merge.AsError(err)
	if !ok {
		fmt.Fprintf(w, "%s %v\n", statusLabel(false, colorize), err)
		return
	}
	fmt.Fprintf(w, "%s %s during %s: %s\n", statusLabel(false, colorize), me.KindName(), me.Stage, me.Reason)
}

func printMergeResult(w io.Writer, result *merge.Result, colorize bool) {
	rows := make([][]string, 0, len(result.Clips))
	for i, clip := range result.Clips {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			clip.DisplayName,
			humanize.Bytes(uint64(clip.SizeBytes)),
			formatSeconds(clip.DurationSeconds),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Clip", "Size", "Duration"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
	))
	fmt.Fprintf(w, "%s %s (%s, %s at %s) in %v\n",
		statusLabel(true, colorize),
		result.OutputPath,
		humanize.Bytes(uint64(result.SizeBytes)),
		formatSeconds(result.DurationSeconds),
		result.Bitrate,
		result.Elapsed.Round(time.Millisecond),
	)
}
