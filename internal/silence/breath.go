package silence

import "github.com/farcloser/autocut/internal/types"

// DetectBreaths runs the narrow-band breath-pause classification pass over
// a KEEP span (a span the silence pass already decided to retain). It is a
// second, independent hysteresis-free sweep against a single fixed
// threshold: speech is never involved in this bookkeeping, only whether a
// run sits in the breath dB band for a plausible breath duration.
//
// dbfs and frameMs describe the same frame array the silence pass used,
// sliced to [startFrame, endFrame). start is the KEEP span's absolute
// start time in seconds, used to translate frame-relative offsets back
// onto the source timeline.
func DetectBreaths(dbfs []float64, frameMs int, start float64, cfg types.AnalysisConfig) []types.Cut {
	if !cfg.BreathDetection || len(dbfs) == 0 {
		return nil
	}

	frameSec := float64(frameMs) / 1000
	minDur := float64(cfg.BreathMinDurationMs) / 1000
	maxDur := float64(cfg.BreathMaxDurationMs) / 1000

	var cuts []types.Cut

	runStart := -1

	flush := func(end int) {
		if runStart < 0 {
			return
		}

		dur := float64(end-runStart) * frameSec
		if dur >= minDur && dur <= maxDur {
			avg, peak := avgPeakDB(dbfs[runStart:end])
			c := types.NewCut(start+float64(runStart)*frameSec, start+float64(end)*frameSec, types.CutBreath)
			c.Enabled = false // breath cuts are surfaced for review, never removed by default
			c.SourceAvgDB = avg
			c.SourcePeakDB = peak
			cuts = append(cuts, c)
		}

		runStart = -1
	}

	for i, db := range dbfs {
		below := db < cfg.BreathThresholdDB
		switch {
		case below && runStart < 0:
			runStart = i
		case !below && runStart >= 0:
			flush(i)
		}
	}

	flush(len(dbfs))

	return cuts
}
