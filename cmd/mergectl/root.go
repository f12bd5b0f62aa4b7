package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audio-merger/internal/logging"
	"audio-merger/internal/transcoder"
)

// toolFactory builds the media tool from the --ffmpeg and --ffprobe flags.
type toolFactory func(ffmpegPath, ffprobePath string) transcoder.Tool

func defaultToolFactory(ffmpegPath, ffprobePath string) transcoder.Tool {
	return transcoder.New(ffmpegPath, ffprobePath)
}

type commandContext struct {
	ffmpegPath  string
	ffprobePath string
	logLevel    string
	jsonOutput  bool

	newTool toolFactory
}

func (c *commandContext) tool() transcoder.Tool {
	return c.newTool(c.ffmpegPath, c.ffprobePath)
}

func newRootCommand(factory toolFactory) *cobra.Command {
	ctx := &commandContext{newTool: factory}

	rootCmd := &cobra.Command{
		Use:           "mergectl",
		Short:         "Probe and merge audio clips with ffmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if ctx.logLevel == "" {
				return nil
			}
			level, ok := logging.ParseLevel(ctx.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", ctx.logLevel)
			}
			logging.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	flags.StringVar(&ctx.ffprobePath, "ffprobe", "ffprobe", "Path to the ffprobe binary")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&ctx.jsonOutput, "json", false, "Write results as JSON")

	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newMergeCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
