//nolint:tagliatelle
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	pfault "github.com/farcloser/primordium/fault"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

const (
	ffprobeName     = "ffprobe"
	probeTimeout    = 30 * time.Second
	streamTypeAudio = "audio"
	streamTypeVideo = "video"
)

// probeResult mirrors ffprobe's -show_format -show_streams JSON output,
// trimmed to the fields the Media Probe actually consults.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	BitsPerSample int    `json:"bits_per_sample,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	RFrameRate    string `json:"r_frame_rate,omitempty"`
	Duration      string `json:"duration,omitempty"`
}

type probeFormat struct {
	Duration string `json:"duration,omitempty"`
	Size     string `json:"size,omitempty"`
}

// Probe runs ffprobe against filePath and assembles a MediaInfo. Probing
// succeeds even for audio-only or video-only sources; it is an error only
// when ffprobe itself fails, the result has neither stream, or the reported
// duration is zero.
func Probe(ctx context.Context, filePath string) (*types.MediaInfo, error) {
	slog.Debug("media.Probe", "path", filePath)

	ffprobePath, found := findBinary(ffprobeName)
	if !found {
		return nil, fmt.Errorf("%w: %w: %s", fault.ErrMediaToolMissing, pfault.ErrMissingRequirements, ffprobeName)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	//nolint:gosec // filePath is user-provided input to a probing tool, the intended use
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: ffprobe after %v", fault.ErrTimeout, pfault.ErrTimeout, probeTimeout)
		}

		return nil, fmt.Errorf("%w: %w: ffprobe: %s", fault.ErrInvalidMedia, pfault.ErrCommandFailure, stderr.String())
	}

	var result probeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("%w: %w: decoding ffprobe output: %w", fault.ErrInvalidMedia, pfault.ErrInvalidJSON, err)
	}

	info := &types.MediaInfo{FilePath: filePath}

	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		info.Duration = d
	}

	if sz, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
		info.FileSize = sz
	}

	for _, s := range result.Streams {
		switch s.CodecType {
		case streamTypeVideo:
			if info.Width == 0 && info.Height == 0 {
				info.Width = s.Width
				info.Height = s.Height
				info.VideoCodec = s.CodecName
				info.FPS = parseFrameRate(s.RFrameRate)
			}
		case streamTypeAudio:
			if info.SampleRate == 0 {
				if sr, err := strconv.Atoi(s.SampleRate); err == nil {
					info.SampleRate = sr
				}

				info.Channels = s.Channels
				info.AudioCodec = s.CodecName
				info.BitDepth = s.BitsPerSample
			}
		}
	}

	if info.Duration == 0 {
		return nil, fmt.Errorf("%w: zero duration", fault.ErrInvalidMedia)
	}

	if !info.HasVideo() && !info.HasAudio() {
		return nil, fmt.Errorf("%w: no video or audio streams", fault.ErrInvalidMedia)
	}

	return info, nil
}

// parseFrameRate turns ffprobe's "30000/1001" rational frame rate string
// into a float, returning 0 on any malformed input.
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return 0
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}

	return n / d
}
