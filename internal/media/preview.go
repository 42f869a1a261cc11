package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

// RenderAudioPreview is a cheap, audio-only alternative to RenderTimeline
// for scrubbing through a cut list before committing to a full re-encode.
// It extracts each keep segment's PCM independently (bounded parallelism,
// mirroring a buffered-channel semaphore over runtime.NumCPU() workers),
// then lays them end to end in one canvas (no crossfade between segments)
// and encodes the result once.
//
// This path never touches video and is not frame-accurate the way
// RenderTimeline is — it exists purely to preview audio quickly.
func RenderAudioPreview(
	ctx context.Context,
	inputPath, outputPath string,
	sampleRate int,
	segments []types.Segment,
) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: no keep segments", fault.ErrRenderFailed)
	}

	pcms := make([][]float32, len(segments))

	sem := make(chan struct{}, max(runtime.NumCPU(), 1))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, seg := range segments {
		wg.Add(1)

		go func(i int, seg types.Segment) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			samples, err := extractSegmentPCM(ctx, inputPath, seg, sampleRate)
			if err != nil {
				mu.Lock()

				if firstErr == nil {
					firstErr = err
				}

				mu.Unlock()

				return
			}

			pcms[i] = samples
		}(i, seg)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	canvas := overlaySequential(pcms)

	return encodePCMToFile(ctx, canvas, sampleRate, outputPath)
}

// extractSegmentPCM runs a single ffmpeg -ss/-t extraction for one keep
// segment, decoding to mono float32 PCM in memory.
func extractSegmentPCM(ctx context.Context, inputPath string, seg types.Segment, sampleRate int) ([]float32, error) {
	ffmpegPath, found := findBinary(ffmpegName)
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrMediaToolMissing, ffmpegName)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", seg.Start),
		"-t", fmt.Sprintf("%.3f", seg.Duration()),
		"-i", inputPath,
		"-vn", "-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
		"-f", "f32le", "-",
	)

	var out, stderr bytes.Buffer

	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: preview segment: %s: %w", fault.ErrRenderFailed, stderr.String(), err)
	}

	raw := out.Bytes()
	samples := make([]float32, len(raw)/4)

	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}

	return samples, nil
}

// overlaySequential lays each segment's samples end to end. Segments never
// overlap in source time, so the canvas only needs a sequential copy, not
// the additive sum a true crossfade overlay would require.
func overlaySequential(pcms [][]float32) []float32 {
	var total int
	for _, p := range pcms {
		total += len(p)
	}

	canvas := make([]float32, total)

	offset := 0

	for _, p := range pcms {
		copy(canvas[offset:], p)
		offset += len(p)
	}

	return canvas
}

func encodePCMToFile(ctx context.Context, samples []float32, sampleRate int, outputPath string) error {
	ffmpegPath, found := findBinary(ffmpegName)
	if !found {
		return fmt.Errorf("%w: %s", fault.ErrMediaToolMissing, ffmpegName)
	}

	_ = os.Remove(outputPath)

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-v", "error",
		"-f", "f32le", "-ar", fmt.Sprintf("%d", sampleRate), "-ac", "1",
		"-i", "-",
		"-c:a", "aac", "-b:a", "192k",
		"-y", outputPath,
	)

	buf := make([]byte, len(samples)*4)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}

	cmd.Stdin = bytes.NewReader(buf)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: preview encode: %s: %w", fault.ErrRenderFailed, stderr.String(), err)
	}

	return nil
}
