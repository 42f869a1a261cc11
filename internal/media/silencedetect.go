package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/silence"
	"github.com/farcloser/autocut/internal/types"
)

var (
	silenceStartPattern = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndPattern   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)\s*\|\s*silence_duration:\s*([\d.]+)`)
)

// DetectSilenceFFmpeg runs ffmpeg's own silencedetect filter as an
// alternate backend to the native dBFS pipeline: useful when the caller
// already has ffmpeg in the loop and prefers its detector over decoding
// PCM directly. Stages 1-4 (framing, threshold, hysteresis, run
// extraction) are replaced by parsing silencedetect's stderr; stages 5-7
// (duration filter, merge, pad) are the same FilterMergePad the native
// pipeline in internal/silence uses, so both backends honor the same
// invariants. Any ffmpeg failure, including a non-zero exit or the
// five-minute timeout, is returned as an error.
func DetectSilenceFFmpeg(
	ctx context.Context,
	inputPath string,
	duration float64,
	cfg types.AnalysisConfig,
) ([]types.Cut, error) {
	ffmpegPath, found := findBinary(ffmpegName)
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrMediaToolMissing, ffmpegName)
	}

	minDurationSec := float64(cfg.SilenceMinDurationMs) / 1000

	const detectTimeout = 5 * time.Minute

	detectCtx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	cmd := exec.CommandContext(detectCtx, ffmpegPath,
		"-i", inputPath,
		"-af", fmt.Sprintf("silencedetect=n=%gdB:d=%g", cfg.SilenceThresholdDB, minDurationSec),
		"-f", "null", "-",
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(detectCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: silencedetect after %v", fault.ErrTimeout, detectTimeout)
		}

		return nil, fmt.Errorf("%w: silencedetect: %w", fault.ErrInvalidAudio, err)
	}

	segments := parseSilenceDetect(stderr.String())

	segments = silence.FilterMergePad(segments, cfg, duration)

	cuts := make([]types.Cut, 0, len(segments))

	for _, s := range segments {
		c := types.NewCut(s.Start, s.End, types.CutSilence)
		c.SourceAvgDB = s.AvgDB
		c.SourcePeakDB = s.PeakDB
		cuts = append(cuts, c)
	}

	if !cfg.BreathDetection {
		return cuts, nil
	}

	dbfs, err := framesForBreath(ctx, inputPath, cfg.FrameMs)
	if err != nil {
		slog.Warn("media.DetectSilenceFFmpeg: breath pass skipped, frame decode failed", "error", err)

		return cuts, nil
	}

	return silence.MergeBreathCuts(dbfs, cfg, duration, cuts), nil
}

// framesForBreath extracts inputPath to a temporary mono WAV and runs
// silence.FrameEnergies over it, giving the ffmpeg-assisted backend the
// same frame-level dBFS array the native pipeline uses for its breath pass.
func framesForBreath(ctx context.Context, inputPath string, frameMs int) ([]float64, error) {
	const breathSampleRate = 16000

	tmp, err := os.CreateTemp("", "autocut-breath-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmp.Name()
	_ = tmp.Close()

	defer os.Remove(tmpPath)

	if err := ExtractAudio(ctx, inputPath, tmpPath, breathSampleRate); err != nil {
		return nil, fmt.Errorf("extracting audio from %s: %w", inputPath, err)
	}

	r, format, err := OpenWAV(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("opening extracted audio: %w", err)
	}
	defer r.Close()

	dbfs, _, err := silence.FrameEnergies(r, format, frameMs)
	if err != nil {
		return nil, fmt.Errorf("framing extracted audio: %w", err)
	}

	return dbfs, nil
}

// parseSilenceDetect scans ffmpeg stderr for silence_start/silence_end
// pairs and emits raw (unfiltered) silent segments.
func parseSilenceDetect(output string) []types.AudioSegment {
	var segments []types.AudioSegment

	var pendingStart float64

	haveStart := false

	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		line := scanner.Text()

		if m := silenceStartPattern.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				pendingStart = v
				haveStart = true
			}

			continue
		}

		if m := silenceEndPattern.FindStringSubmatch(line); m != nil && haveStart {
			end, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}

			segments = append(segments, types.AudioSegment{
				Start:     pendingStart,
				End:       end,
				AvgDB:     -60,
				PeakDB:    -60,
				IsSilence: true,
			})
			haveStart = false
		}
	}

	return segments
}
