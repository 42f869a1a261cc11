package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/autocut/internal/media"
)

var errExpectOneFile = errors.New("expected exactly one argument: media file path")

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "Probe a media file and print its MediaInfo",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
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

			info, err := media.Probe(ctx, path)
			if err != nil {
				return fmt.Errorf("probing %s: %w", path, err)
			}

			meta := map[string]any{
				"duration_sec": info.Duration,
				"fps":          info.FPS,
				"width":        info.Width,
				"height":       info.Height,
				"video_codec":  info.VideoCodec,
				"audio_codec":  info.AudioCodec,
				"sample_rate":  info.SampleRate,
				"channels":     info.Channels,
				"bit_depth":    info.BitDepth,
				"has_video":    info.HasVideo(),
				"has_audio":    info.HasAudio(),
			}

			return printResult(path, meta, cmd.String("format"))
		},
	}
}
