package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/job"
	"github.com/farcloser/autocut/internal/media"
	"github.com/farcloser/autocut/internal/project"
	"github.com/farcloser/autocut/internal/timeline"
)

// renderRunner backs every render/preview submission; one process-wide
// pool is enough since ffmpeg itself is the bottleneck, not goroutine
// scheduling.
var renderRunner = job.NewRunner(2) //nolint:gochecknoglobals

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a project's keep-segment timeline to a new media file",
		ArgsUsage: "<project.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Output media file path",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "preview",
				Usage: "Audio-only preview (segments joined end to end, no crossfade) instead of a full re-encode",
			},
			&cli.IntFlag{
				Name:  "preview-sample-rate",
				Usage: "Sample rate for --preview output",
				Value: 48000,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errExpectOneFile, cmd.NArg())
			}

			projectPath := cmd.Args().First()

			p, err := project.Load(projectPath)
			if err != nil {
				return err
			}

			if p.Media == nil {
				return fmt.Errorf("%w: project %s has no associated media", fault.ErrInvalidMedia, projectPath)
			}

			tl := timeline.New(p.Media.Duration, p.Cuts)
			segments := tl.KeepSegments()

			outPath := cmd.String("output")
			preview := cmd.Bool("preview")

			handle := renderRunner.Submit(ctx, func(jobCtx context.Context, report job.Reporter) (any, error) {
				if preview {
					rate := cmd.Int("preview-sample-rate")

					err := media.RenderAudioPreview(jobCtx, p.Media.FilePath, outPath, rate, segments)

					return nil, err
				}

				onProgress := func(percent float64) {
					report(percent, "rendering")
				}

				err := media.RenderTimeline(jobCtx, p.Media.FilePath, outPath, *p.Media, segments, onProgress)

				return nil, err
			})

			for update := range handle.Progress() {
				fmt.Printf("\r%-9s %5.1f%%", update.Message, update.Percent) //nolint:forbidigo // CLI progress line
			}

			fmt.Println() //nolint:forbidigo

			result := <-handle.Result()
			if result.Err != nil {
				return fmt.Errorf("rendering %s: %w", projectPath, result.Err)
			}

			return printResult(outPath, map[string]any{
				"segments":       len(segments),
				"final_duration": tl.FinalDuration(),
				"output_path":    outPath,
				"preview":        preview,
			}, "console")
		},
	}
}
