package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

// Progress reports render completion as a percentage in [0,100].
type Progress func(percent float64)

// RenderTimeline builds the single filter_complex trim+concat+re-encode
// graph described for the timeline's keep segments and writes the result
// to outputPath. inputPath must differ from outputPath.
func RenderTimeline(
	ctx context.Context,
	inputPath, outputPath string,
	media types.MediaInfo,
	segments []types.Segment,
	onProgress Progress,
) error {
	if samePath(inputPath, outputPath) {
		return fault.ErrSameFileRefused
	}

	if len(segments) == 0 {
		return fmt.Errorf("%w: no keep segments", fault.ErrRenderFailed)
	}

	_ = os.Remove(outputPath)

	ffmpegPath, found := findBinary(ffmpegName)
	if !found {
		return fmt.Errorf("%w: %s", fault.ErrMediaToolMissing, ffmpegName)
	}

	filter, outLabels := buildConcatFilter(segments, media.HasVideo())

	totalKeep := totalSegmentDuration(segments)

	args := []string{"-v", "error", "-progress", "pipe:1", "-stats_period", "0.5",
		"-i", inputPath,
		"-filter_complex", filter,
	}
	for _, l := range outLabels {
		args = append(args, "-map", "["+l+"]")
	}

	args = append(args,
		"-c:v", "libx264", "-preset", "fast", "-crf", "18",
		"-c:a", "aac", "-b:a", "192k",
		"-y", outputPath,
	)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %w", fault.ErrRenderFailed, err)
	}

	var stderrTail ringBuffer

	cmd.Stderr = &stderrTail

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrRenderFailed, err)
	}

	go watchRenderProgress(stdout, totalKeep, onProgress)

	runErr := cmd.Wait()

	if ctx.Err() != nil {
		_ = os.Remove(outputPath)

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: render", fault.ErrTimeout)
		}

		return fmt.Errorf("%w: render cancelled", fault.ErrCancelled)
	}

	if runErr != nil {
		_ = os.Remove(outputPath)

		return fmt.Errorf("%w: %s", fault.ErrRenderFailed, stderrTail.String())
	}

	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: output not produced", fault.ErrRenderFailed)
	}

	return nil
}

// buildConcatFilter produces the trim/atrim chain and the final concat
// node, returning the filter_complex string and the output pad labels to
// -map, in order.
func buildConcatFilter(segments []types.Segment, hasVideo bool) (string, []string) {
	var b strings.Builder

	n := len(segments)

	for i, s := range segments {
		if hasVideo {
			fmt.Fprintf(&b, "[0:v]trim=start=%.3f:end=%.3f,setpts=PTS-STARTPTS[v%d];", s.Start, s.End, i)
		}

		fmt.Fprintf(&b, "[0:a]atrim=start=%.3f:end=%.3f,asetpts=PTS-STARTPTS[a%d];", s.Start, s.End, i)
	}

	for i := range segments {
		if hasVideo {
			fmt.Fprintf(&b, "[v%d][a%d]", i, i)
		} else {
			fmt.Fprintf(&b, "[a%d]", i)
		}
	}

	outLabels := []string{"outa"}
	if hasVideo {
		outLabels = []string{"outv", "outa"}
		fmt.Fprintf(&b, "concat=n=%d:v=1:a=1[outv][outa]", n)
	} else {
		fmt.Fprintf(&b, "concat=n=%d:v=0:a=1[outa]", n)
	}

	return b.String(), outLabels
}

func totalSegmentDuration(segments []types.Segment) float64 {
	var total float64
	for _, s := range segments {
		total += s.Duration()
	}

	return total
}

// watchRenderProgress reads ffmpeg's `-progress pipe:1` key=value stream
// and reports a clamped 10..95 percentage, leaving the first 10% for
// startup and the last 5% for container finalization.
func watchRenderProgress(r io.Reader, totalKeep float64, onProgress Progress) {
	if onProgress == nil {
		return
	}

	scanner := bufio.NewScanner(bufio.NewReader(r))

	for scanner.Scan() {
		line := scanner.Text()

		if !strings.HasPrefix(line, "out_time_ms=") {
			continue
		}

		raw := strings.TrimPrefix(line, "out_time_ms=")

		us, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}

		elapsed := float64(us) / 1e6

		pct := 10.0
		if totalKeep > 0 {
			pct = 10 + 85*elapsed/totalKeep
		}

		onProgress(clamp(pct, 10, 95))
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func samePath(a, b string) bool {
	ai, aerr := os.Stat(a)
	bi, berr := os.Stat(b)

	if aerr != nil || berr != nil {
		return a == b
	}

	return os.SameFile(ai, bi)
}

// ringBuffer keeps only the last ~20 lines written to it, matching the
// failure-report contract (non-zero exit -> RenderFailed + last 20 lines).
type ringBuffer struct {
	lines []string
}

func (r *ringBuffer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(bytes.TrimRight(p, "\n")), "\n") {
		r.lines = append(r.lines, line)
		if len(r.lines) > 20 {
			r.lines = r.lines[1:]
		}
	}

	return len(p), nil
}

func (r *ringBuffer) String() string {
	return strings.Join(r.lines, "\n")
}
