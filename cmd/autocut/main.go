// Command autocut detects silence in a recording, derives a keep-segment
// timeline, and serializes or renders the result: probe → analyze → cut →
// export/render, one ffmpeg/ffprobe-backed subcommand per stage.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

const appVersion = "0.1.0"

func main() {
	ctx := context.Background()

	app := &cli.Command{
		Name:    "autocut",
		Usage:   "Detect silence, build a keep-segment timeline, and export or render it",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Raise log verbosity",
			},
		},
		Before: func(_ context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			return ctx, nil
		},
		Commands: []*cli.Command{
			probeCommand(),
			analyzeCommand(),
			cutCommand(),
			exportCommand(),
			renderCommand(),
			waveformCommand(),
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("autocut failed", "error", err)
		os.Exit(1)
	}
}
