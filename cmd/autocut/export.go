package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/autocut/internal/export/edl"
	"github.com/farcloser/autocut/internal/export/fcpxml"
	"github.com/farcloser/autocut/internal/export/xmeml"
	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/project"
	"github.com/farcloser/autocut/internal/timeline"
)

var errUnknownExportFormat = errors.New("unknown export format: want fcpxml, xmeml, or edl")

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a project's keep-segment timeline to an NLE interchange format",
		ArgsUsage: "<project.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "format",
				Aliases:  []string{"f"},
				Usage:    "Export format: fcpxml, xmeml, edl",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Output file path",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "drop-frame",
				Usage: "Use drop-frame timecode (EDL only; frames are dropped only for 29.97fps sources)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
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

			segments := timeline.New(p.Media.Duration, p.Cuts).KeepSegments()

			var data []byte

			switch cmd.String("format") {
			case "fcpxml":
				data, err = fcpxml.Build(p.Name, *p.Media, segments)
			case "xmeml":
				data, err = xmeml.Build(p.Name, *p.Media, segments)
			case "edl":
				data, err = edl.Build(p.Name, p.Media.FilePath, *p.Media, segments, cmd.Bool("drop-frame"))
			default:
				return fmt.Errorf("%w: got %q", errUnknownExportFormat, cmd.String("format"))
			}

			if err != nil {
				return fmt.Errorf("exporting %s: %w", cmd.String("format"), err)
			}

			outPath := cmd.String("output")

			if err := os.WriteFile(outPath, data, 0o644); err != nil { //nolint:gosec // export file is not a secret
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			return printResult(outPath, map[string]any{
				"format":      cmd.String("format"),
				"segments":    len(segments),
				"output_path": outPath,
			}, "console")
		},
	}
}
