package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/autocut/internal/media"
	"github.com/farcloser/autocut/internal/waveform"
)

func waveformCommand() *cli.Command {
	return &cli.Command{
		Name:      "waveform",
		Usage:     "Build a cached, bucketed waveform for a media file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "samples-per-bucket",
				Usage: "Bucket size in samples; 0 builds the full multi-resolution ladder",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "Directory for the on-disk waveform cache (empty disables caching)",
				Value: os.TempDir(),
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

			const waveformSampleRate = 16000

			tmpWAV, err := os.CreateTemp("", "autocut-waveform-*.wav")
			if err != nil {
				return fmt.Errorf("creating temp file: %w", err)
			}

			tmpPath := tmpWAV.Name()
			_ = tmpWAV.Close()

			defer os.Remove(tmpPath)

			if err := media.ExtractAudio(ctx, path, tmpPath, waveformSampleRate); err != nil {
				return fmt.Errorf("extracting audio from %s: %w", path, err)
			}

			open := func() (io.ReadCloser, error) {
				r, _, err := media.OpenWAV(tmpPath)

				return r, err
			}

			cacheDir := cmd.String("cache-dir")

			if bucket := cmd.Int("samples-per-bucket"); bucket > 0 {
				r, err := open()
				if err != nil {
					return fmt.Errorf("opening extracted audio: %w", err)
				}
				defer r.Close()

				wf, err := waveform.NewGenerator(bucket, cacheDir).Generate(path, r, waveformSampleRate)
				if err != nil {
					return fmt.Errorf("generating waveform: %w", err)
				}

				return printResult(path, map[string]any{
					"samples_per_bucket": bucket,
					"bucket_count":       wf.NumBuckets(),
					"duration":           wf.Duration,
				}, cmd.String("format"))
			}

			resolutions, err := waveform.GenerateMultiResolution(path, open, waveformSampleRate, cacheDir)
			if err != nil {
				return fmt.Errorf("generating multi-resolution waveform: %w", err)
			}

			buckets := make(map[string]int, len(resolutions))
			for res, wf := range resolutions {
				buckets[fmt.Sprintf("%d", res)] = wf.NumBuckets()
			}

			return printResult(path, map[string]any{
				"resolutions":   waveform.DefaultResolutions,
				"bucket_counts": buckets,
			}, cmd.String("format"))
		},
	}
}
