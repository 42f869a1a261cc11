package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	pfault "github.com/farcloser/primordium/fault"

	"github.com/farcloser/autocut/internal/fault"
)

const (
	ffmpegName     = "ffmpeg"
	extractTimeout = 60 * time.Minute
)

// ExtractAudio decodes the source's audio to a 16-bit PCM WAV file at
// outputPath, mixed down to mono at sampleRate, with metadata and encoder
// tags left out so the file has the bare 44-byte header OpenWAV reads. This
// is the file the Silence Detector's native dBFS pipeline reads.
func ExtractAudio(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	slog.Debug("media.ExtractAudio", "input", inputPath, "output", outputPath)

	return runFFmpeg(ctx, extractTimeout,
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-acodec", "pcm_s16le",
		"-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-y", outputPath,
	)
}

// GenerateProxy transcodes the source to a lower-resolution H.264 proxy
// suitable for fast scrubbing during editing.
func GenerateProxy(ctx context.Context, inputPath, outputPath string, maxHeight int) error {
	slog.Debug("media.GenerateProxy", "input", inputPath, "output", outputPath)

	scale := fmt.Sprintf("-2:%d", maxHeight)

	return runFFmpeg(ctx, extractTimeout,
		"-i", inputPath,
		"-vf", "scale="+scale,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "28",
		"-c:a", "aac",
		"-b:a", "128k",
		"-y", outputPath,
	)
}

// ExtractFrame grabs a single frame at timestampSec as a JPEG thumbnail.
func ExtractFrame(ctx context.Context, inputPath, outputPath string, timestampSec float64) error {
	return runFFmpeg(ctx, extractTimeout,
		"-ss", fmt.Sprintf("%.3f", timestampSec),
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", outputPath,
	)
}

// runFFmpeg locates the ffmpeg binary and runs it with args, under the
// given timeout, wrapping failures with the engine's error taxonomy.
func runFFmpeg(ctx context.Context, timeout time.Duration, args ...string) error {
	ffmpegPath, found := findBinary(ffmpegName)
	if !found {
		return fmt.Errorf("%w: %w: %s", fault.ErrMediaToolMissing, pfault.ErrMissingRequirements, ffmpegName)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath, append([]string{"-v", "error"}, args...)...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w: ffmpeg after %v", fault.ErrTimeout, pfault.ErrTimeout, timeout)
		}

		return fmt.Errorf("%w: %w: ffmpeg: %s", fault.ErrRenderFailed, pfault.ErrCommandFailure, stderr.String())
	}

	return nil
}
