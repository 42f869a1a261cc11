package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/autocut/internal/media"
	"github.com/farcloser/autocut/internal/silence"
	"github.com/farcloser/autocut/internal/types"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Extract audio and run the silence detector over a media file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "threshold-db",
				Usage: "Silence threshold in dBFS",
				Value: types.DefaultAnalysisConfig().SilenceThresholdDB,
			},
			&cli.IntFlag{
				Name:  "min-duration-ms",
				Usage: "Minimum duration of a silent run to count as a cut",
				Value: types.DefaultAnalysisConfig().SilenceMinDurationMs,
			},
			&cli.IntFlag{
				Name:  "merge-gap-ms",
				Usage: "Gaps between silent runs this close are merged",
				Value: types.DefaultAnalysisConfig().MergeGapMs,
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
				Value: types.DefaultAnalysisConfig().VADAggressiveness,
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

			cuts, _, err := analyzeFile(ctx, path, configFromFlags(cmd), cmd.Bool("ffmpeg-silencedetect"))
			if err != nil {
				return err
			}

			meta := map[string]any{
				"cut_count": len(cuts),
				"cuts":      cutsToMaps(cuts),
			}

			return printResult(path, meta, cmd.String("format"))
		},
	}
}

// configFromFlags builds an AnalysisConfig from this command's shared
// flag set, starting from the engine's defaults so unset flags keep
// sensible values.
func configFromFlags(cmd *cli.Command) types.AnalysisConfig {
	cfg := types.DefaultAnalysisConfig()
	cfg.SilenceThresholdDB = cmd.Float64("threshold-db")
	cfg.SilenceMinDurationMs = cmd.Int("min-duration-ms")
	cfg.MergeGapMs = cmd.Int("merge-gap-ms")
	cfg.BreathDetection = cmd.Bool("breath-detection")
	cfg.UseVAD = cmd.Bool("use-vad")
	cfg.VADAggressiveness = cmd.Int("vad-aggressiveness")

	return cfg
}

// analyzeFile runs Probe, then either delegates to the ffmpeg-assisted
// silencedetect backend or extracts PCM to a temporary WAV and runs the
// native detector over it, returning the cuts and the probed MediaInfo. The
// ffmpeg-assisted backend falls back to the native path when invocation
// fails, per its contract.
func analyzeFile(
	ctx context.Context,
	path string,
	cfg types.AnalysisConfig,
	useFFmpegDetect bool,
) ([]types.Cut, *types.MediaInfo, error) {
	info, err := media.Probe(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("probing %s: %w", path, err)
	}

	if useFFmpegDetect {
		cuts, err := media.DetectSilenceFFmpeg(ctx, path, info.Duration, cfg)
		if err == nil {
			return cuts, info, nil
		}

		slog.Warn("ffmpeg silencedetect invocation failed, falling back to native pipeline", "error", err)
	}

	const analysisSampleRate = 16000

	tmpWAV, err := os.CreateTemp("", "autocut-*.wav")
	if err != nil {
		return nil, nil, fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpWAV.Name()
	_ = tmpWAV.Close()

	defer os.Remove(tmpPath)

	if err := media.ExtractAudio(ctx, path, tmpPath, analysisSampleRate); err != nil {
		return nil, nil, fmt.Errorf("extracting audio from %s: %w", path, err)
	}

	r, pcmFormat, err := media.OpenWAV(tmpPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening extracted audio %s: %w", filepath.Base(tmpPath), err)
	}
	defer r.Close()

	cuts, err := silence.Detect(r, pcmFormat, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("detecting silence in %s: %w", path, err)
	}

	return cuts, info, nil
}

func cutsToMaps(cuts []types.Cut) []map[string]any {
	out := make([]map[string]any, 0, len(cuts))
	for _, c := range cuts {
		out = append(out, c.ToMap())
	}

	return out
}
