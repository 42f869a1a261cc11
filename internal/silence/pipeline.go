// Package silence implements the Silence Detector: a seven-stage
// signal-processing pipeline that turns a PCM audio stream into a sorted,
// non-overlapping list of Cuts. Stage 3 (hysteresis labelling) is
// inherently sequential and is never parallelized; stages 1 and 4 are the
// natural places to vectorize, per the redesign notes this pipeline
// follows.
package silence

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/timeline"
	"github.com/farcloser/autocut/internal/types"
)

// Detect runs the full native dBFS pipeline (stages 1-7, plus the optional
// breath-pause pass) over a PCM stream and returns sorted, non-overlapping
// SILENCE cuts.
func Detect(r io.Reader, format types.PCMFormat, cfg types.AnalysisConfig) ([]types.Cut, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrConfigOutOfRange, err)
	}

	if cfg.UseVAD {
		return detectFromVAD(r, format, cfg)
	}

	dbfs, totalSamples, err := frameEnergies(r, format, cfg.FrameMs)
	if err != nil {
		return nil, err
	}

	if len(dbfs) == 0 {
		return nil, nil
	}

	duration := float64(totalSamples) / float64(format.SampleRate)

	segments := detectFromFrames(dbfs, cfg, duration)

	return buildCuts(segments, dbfs, cfg, duration), nil
}

// buildCuts converts the final SILENCE AudioSegments to Cuts and folds in
// the breath-pause pass, for the backends that already work with a framed
// dbfs array (the native and VAD-assisted pipelines).
func buildCuts(segments []types.AudioSegment, dbfs []float64, cfg types.AnalysisConfig, duration float64) []types.Cut {
	return MergeBreathCuts(dbfs, cfg, duration, segmentsToCuts(segments))
}

// MergeBreathCuts folds the breath-pause pass into an already-built SILENCE
// cut list, for backends (like the ffmpeg-assisted detector) that arrive at
// their cuts without going through Detect directly. A no-op when
// BreathDetection is off.
func MergeBreathCuts(dbfs []float64, cfg types.AnalysisConfig, duration float64, silenceCuts []types.Cut) []types.Cut {
	if !cfg.BreathDetection {
		return silenceCuts
	}

	cuts := append([]types.Cut{}, silenceCuts...)
	cuts = append(cuts, breathCutsForKeepSpans(dbfs, cfg, duration, silenceCuts)...)

	sort.Slice(cuts, func(i, j int) bool { return cuts[i].Start < cuts[j].Start })

	return cuts
}

// breathCutsForKeepSpans runs DetectBreaths over every KEEP span implied by
// silenceCuts, translating each span's absolute time range to frame indices
// in dbfs before handing it off.
func breathCutsForKeepSpans(dbfs []float64, cfg types.AnalysisConfig, duration float64, silenceCuts []types.Cut) []types.Cut {
	if len(dbfs) == 0 {
		return nil
	}

	frameSec := float64(cfg.FrameMs) / 1000

	var breaths []types.Cut

	for _, span := range timeline.New(duration, silenceCuts).KeepSegments() {
		startFrame := max(int(span.Start/frameSec), 0)
		endFrame := min(int(span.End/frameSec+0.5), len(dbfs))

		if endFrame <= startFrame {
			continue
		}

		breaths = append(breaths,
			DetectBreaths(dbfs[startFrame:endFrame], cfg.FrameMs, float64(startFrame)*frameSec, cfg)...)
	}

	return breaths
}

// detectFromFrames runs stages 2-7 over an already-framed dBFS array. It is
// used by the native pipeline and by the VAD-assisted variant's fallback
// branch. The VAD success path (which turns speech spans straight into
// silent segments) and the ffmpeg-assisted variant (internal/media, which
// parses ffmpeg's silencedetect output) do not call it; they hand their
// pre-built AudioSegments to FilterMergePad for stages 5-7 directly.
func detectFromFrames(dbfs []float64, cfg types.AnalysisConfig, duration float64) []types.AudioSegment {
	threshold := adaptiveThreshold(dbfs, cfg.SilenceThresholdDB)

	silent := hysteresisLabel(dbfs, threshold, cfg.HysteresisDB)

	segments := runExtraction(silent, dbfs, cfg.FrameMs)

	return FilterMergePad(segments, cfg, duration)
}

// hysteresisLabel is pipeline stage 3. Two thresholds bound a Schmitt
// trigger: ON = threshold - hysteresisDB, OFF = threshold + hysteresisDB.
// The walk carries one state bit across the whole array and must run on a
// single goroutine — this is the one stage in the pipeline that cannot be
// parallelized without changing its output.
func hysteresisLabel(dbfs []float64, threshold, hysteresisDB float64) []bool {
	on := threshold - hysteresisDB
	off := threshold + hysteresisDB

	labels := make([]bool, len(dbfs))

	inSilence := false

	for i, db := range dbfs {
		if inSilence {
			if db > off {
				inSilence = false
			}
		} else if db < on {
			inSilence = true
		}

		labels[i] = inSilence
	}

	return labels
}

// runExtraction is pipeline stage 4: scan the bitmap once and turn each
// maximal run of true bits into an AudioSegment.
func runExtraction(silent []bool, dbfs []float64, frameMs int) []types.AudioSegment {
	var segments []types.AudioSegment

	frameSec := float64(frameMs) / 1000

	runStart := -1

	flush := func(end int) {
		if runStart < 0 {
			return
		}

		avg, peak := avgPeakDB(dbfs[runStart:end])
		segments = append(segments, types.AudioSegment{
			Start:     float64(runStart) * frameSec,
			End:       float64(end) * frameSec,
			AvgDB:     avg,
			PeakDB:    peak,
			IsSilence: true,
		})
		runStart = -1
	}

	for i, s := range silent {
		switch {
		case s && runStart < 0:
			runStart = i
		case !s && runStart >= 0:
			flush(i)
		}
	}

	flush(len(silent))

	return segments
}

func avgPeakDB(window []float64) (avg, peak float64) {
	peak = math.Inf(-1)

	var sum float64

	for _, db := range window {
		sum += db
		if db > peak {
			peak = db
		}
	}

	if len(window) > 0 {
		avg = sum / float64(len(window))
	}

	return avg, peak
}

// FilterMergePad runs stages 5-7 (duration filtering, close-segment
// merging, asymmetric padding) over a raw silent-segment list. Exported so
// the ffmpeg-assisted and VAD-assisted variants can share it.
func FilterMergePad(segments []types.AudioSegment, cfg types.AnalysisConfig, duration float64) []types.AudioSegment {
	segments = filterByDuration(segments, cfg.SilenceMinDurationMs, cfg.KeepShortPausesMs)
	segments = mergeClose(segments, cfg.MergeGapMs)
	segments = applyPadding(segments, cfg.PrePadMs, cfg.PostPadMs, duration)

	return segments
}

// filterByDuration is pipeline stage 5. The two filters apply
// independently: a segment shorter than silence_min_duration_ms is always
// dropped; if keep_short_pauses_ms > 0, a segment shorter than it is
// additionally dropped (the intent being "this was a natural pause, leave
// it in the speech").
func filterByDuration(segments []types.AudioSegment, minDurationMs, keepShortPausesMs int) []types.AudioSegment {
	minDuration := float64(minDurationMs) / 1000

	out := segments[:0:0]

	for _, s := range segments {
		if s.Duration() < minDuration {
			continue
		}

		if keepShortPausesMs > 0 && s.Duration() < float64(keepShortPausesMs)/1000 {
			continue
		}

		out = append(out, s)
	}

	return out
}

// mergeClose is pipeline stage 6: a left-to-right single pass that fuses
// adjacent segments separated by a gap no larger than mergeGapMs.
func mergeClose(segments []types.AudioSegment, mergeGapMs int) []types.AudioSegment {
	if len(segments) == 0 {
		return segments
	}

	gap := float64(mergeGapMs) / 1000

	out := make([]types.AudioSegment, 0, len(segments))
	current := segments[0]

	for _, next := range segments[1:] {
		if next.Start-current.End <= gap {
			current = current.MergeWith(next)

			continue
		}

		out = append(out, current)
		current = next
	}

	out = append(out, current)

	return out
}

// applyPadding is pipeline stage 7: shrink each silent interval by
// pre_pad_ms at the start and post_pad_ms at the end, discarding results
// that collapse below 10ms and clamping to [0, duration].
func applyPadding(segments []types.AudioSegment, prePadMs, postPadMs int, duration float64) []types.AudioSegment {
	pre := float64(prePadMs) / 1000
	post := float64(postPadMs) / 1000

	out := segments[:0:0]

	for _, s := range segments {
		start := max(s.Start+pre, 0)
		end := min(s.End-post, duration)

		if end-start < 0.010 {
			continue
		}

		s.Start, s.End = start, end
		out = append(out, s)
	}

	return out
}

func segmentsToCuts(segments []types.AudioSegment) []types.Cut {
	cuts := make([]types.Cut, 0, len(segments))

	for _, s := range segments {
		c := types.NewCut(s.Start, s.End, types.CutSilence)
		c.SourceAvgDB = s.AvgDB
		c.SourcePeakDB = s.PeakDB
		cuts = append(cuts, c)
	}

	return cuts
}
