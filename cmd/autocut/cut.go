package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/autocut/internal/timeline"
	"github.com/farcloser/autocut/internal/types"
)

func cutCommand() *cli.Command {
	defaults := types.DefaultAnalysisConfig()

	return &cli.Command{
		Name:      "cut",
		Usage:     "Analyze a file and derive its keep-segment timeline",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "threshold-db",
				Usage: "Silence threshold in dBFS",
				Value: defaults.SilenceThresholdDB,
			},
			&cli.IntFlag{
				Name:  "min-duration-ms",
				Usage: "Minimum duration of a silent run to count as a cut",
				Value: defaults.SilenceMinDurationMs,
			},
			&cli.IntFlag{
				Name:  "merge-gap-ms",
				Usage: "Gaps between silent runs this close are merged",
				Value: defaults.MergeGapMs,
			},
			&cli.BoolFlag{
				Name:  "breath-detection",
				Usage: "Also surface breath-pause candidates (disabled by default)",
			},
			&cli.BoolFlag{
				Name:  "use-vad",
				Usage: "Use Silero VAD instead of the native dBFS pipeline (8000/16000/32000/48000Hz only)",
			},
			&cli.IntFlag{
				Name:  "vad-aggressiveness",
				Usage: "VAD aggressiveness 0-3; higher means more audio classified as silence",
				Value: defaults.VADAggressiveness,
			},
			&cli.BoolFlag{
				Name:  "ffmpeg-silencedetect",
				Usage: "Use ffmpeg's own silencedetect filter for stages 1-4 instead of decoding PCM directly",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: console, json, markdown",
				Value:   "console",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errExpectOneFile, cmd.NArg())
			}

			path := cmd.Args().First()
			cfg := configFromFlags(cmd)

			cuts, info, err := analyzeFile(ctx, path, cfg, cmd.Bool("ffmpeg-silencedetect"))
			if err != nil {
				return err
			}

			tl := timeline.New(info.Duration, cuts)
			segments := tl.KeepSegments()

			meta := map[string]any{
				"source_duration": info.Duration,
				"final_duration":  tl.FinalDuration(),
				"cut_duration":    tl.TotalCutDuration(),
				"keep_segments":   segmentsToMaps(segments),
			}

			return printResult(path, meta, cmd.String("format"))
		},
	}
}

func segmentsToMaps(segments []types.Segment) []map[string]any {
	out := make([]map[string]any, 0, len(segments))
	for _, s := range segments {
		out = append(out, map[string]any{
			"start":    s.Start,
			"end":      s.End,
			"duration": s.Duration(),
		})
	}

	return out
}
