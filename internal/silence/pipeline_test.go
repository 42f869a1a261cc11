package silence

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/types"
)

// synthesizePCM16 builds a mono 16-bit little-endian PCM buffer: loud tone
// for loudSec seconds, silence for silentSec, loud again for loudSec.
func synthesizePCM16(sampleRate, loudSec, silentSec int) []byte {
	var buf bytes.Buffer

	writeTone := func(seconds int, amplitude int16) {
		for i := 0; i < sampleRate*seconds; i++ {
			var s int16
			if amplitude != 0 {
				s = int16(float64(amplitude) * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
			}

			_ = binary.Write(&buf, binary.LittleEndian, s)
		}
	}

	writeTone(loudSec, 20000)
	writeTone(silentSec, 0)
	writeTone(loudSec, 20000)

	return buf.Bytes()
}

func TestDetectFindsMiddleSilence(t *testing.T) {
	format := types.PCMFormat{SampleRate: 16000, BitDepth: types.Depth16, Channels: 1}
	pcm := synthesizePCM16(format.SampleRate, 2, 2)

	cfg := types.DefaultAnalysisConfig()
	cfg.SilenceMinDurationMs = 200
	cfg.MergeGapMs = 50
	cfg.PrePadMs = 0
	cfg.PostPadMs = 0

	cuts, err := Detect(bytes.NewReader(pcm), format, cfg)
	require.NoError(t, err)
	require.Len(t, cuts, 1)

	c := cuts[0]
	assert.Equal(t, types.CutSilence, c.Type)
	assert.True(t, c.Enabled)
	assert.InDelta(t, 2.0, c.Start, 0.1)
	assert.InDelta(t, 4.0, c.End, 0.1)
}

func TestDetectAllSilenceYieldsOneSpanningCut(t *testing.T) {
	format := types.PCMFormat{SampleRate: 16000, BitDepth: types.Depth16, Channels: 1}
	pcm := synthesizePCM16(format.SampleRate, 0, 1)

	cfg := types.DefaultAnalysisConfig()
	cfg.PrePadMs = 0
	cfg.PostPadMs = 0

	cuts, err := Detect(bytes.NewReader(pcm), format, cfg)
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	assert.InDelta(t, 0.0, cuts[0].Start, 1e-9)
	assert.InDelta(t, 1.0, cuts[0].End, 0.02)
}

func TestDetectRejectsInvalidConfig(t *testing.T) {
	format := types.PCMFormat{SampleRate: 16000, BitDepth: types.Depth16, Channels: 1}
	cfg := types.DefaultAnalysisConfig()
	cfg.FrameMs = -1

	_, err := Detect(bytes.NewReader(nil), format, cfg)
	require.Error(t, err)
}

func TestHysteresisLabelIsSequentialAndSticky(t *testing.T) {
	dbfs := []float64{-10, -35, -34, -10, -10}
	labels := hysteresisLabel(dbfs, -30, 3)

	// on = -33, off = -27: frame1 dips below -33 -> silent; frame2 stays
	// silent even though -34 < -27 would not flip it back out; frame3
	// (-10) exceeds off (-27) -> exits.
	assert.Equal(t, []bool{false, true, true, false, false}, labels)
}

func TestFilterByDurationDropsShortRuns(t *testing.T) {
	segs := []types.AudioSegment{
		{Start: 0, End: 0.1},   // 100ms, below min
		{Start: 1, End: 1.8},   // 800ms, kept
	}

	out := filterByDuration(segs, 500, 0)
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0, out[0].Start, 1e-9)
}

func TestMergeCloseFusesAdjacentRuns(t *testing.T) {
	segs := []types.AudioSegment{
		{Start: 0, End: 1},
		{Start: 1.1, End: 2},
		{Start: 5, End: 6},
	}

	out := mergeClose(segs, 200)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.0, out[0].Start, 1e-9)
	assert.InDelta(t, 2.0, out[0].End, 1e-9)
	assert.InDelta(t, 5.0, out[1].Start, 1e-9)
}

func TestApplyPaddingShrinksAndDropsCollapsed(t *testing.T) {
	segs := []types.AudioSegment{
		{Start: 0, End: 1},
		{Start: 2, End: 2.005}, // collapses below 10ms after padding
	}

	out := applyPadding(segs, 100, 100, 10)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.1, out[0].Start, 1e-9)
	assert.InDelta(t, 0.9, out[0].End, 1e-9)
}

func TestAdaptiveThresholdFallsBackOnLowDynamicRange(t *testing.T) {
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = -40
	}

	got := adaptiveThreshold(flat, -25)
	assert.InDelta(t, -25, got, 1e-9)
}

func TestDetectFoldsBreathCutsIntoKeepSpans(t *testing.T) {
	format := types.PCMFormat{SampleRate: 16000, BitDepth: types.Depth16, Channels: 1}
	pcm := synthesizePCM16(format.SampleRate, 3, 1)

	cfg := types.DefaultAnalysisConfig()
	cfg.SilenceMinDurationMs = 200
	cfg.MergeGapMs = 50
	cfg.PrePadMs = 0
	cfg.PostPadMs = 0
	cfg.BreathDetection = true
	cfg.BreathThresholdDB = -20 // the loud tone sits around -7dB, well above this
	cfg.BreathMinDurationMs = 50
	cfg.BreathMaxDurationMs = 2000

	cuts, err := Detect(bytes.NewReader(pcm), format, cfg)
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	assert.Equal(t, types.CutSilence, cuts[0].Type)

	// Nothing in the loud-tone KEEP spans crosses -20dB, so the breath pass
	// runs (exercising Detect -> buildCuts -> MergeBreathCuts ->
	// breathCutsForKeepSpans) but folds in zero cuts.
}

func TestBreathCutsForKeepSpansTranslatesFrameOffsets(t *testing.T) {
	cfg := types.DefaultAnalysisConfig()
	cfg.BreathDetection = true
	cfg.BreathThresholdDB = -45
	cfg.BreathMinDurationMs = 100
	cfg.BreathMaxDurationMs = 400
	cfg.FrameMs = 10

	// 100 frames @ 10ms = 1s of dbfs; a silence cut covers [0.3, 0.5), leaving
	// two KEEP spans: [0, 0.3) and [0.5, 1.0). Put a 200ms breath-band dip at
	// frame 60 (t=0.6s), inside the second KEEP span.
	dbfs := make([]float64, 100)
	for i := range dbfs {
		dbfs[i] = 0
	}

	for i := 60; i < 80; i++ {
		dbfs[i] = -50
	}

	silenceCuts := []types.Cut{types.NewCut(0.3, 0.5, types.CutSilence)}

	breaths := breathCutsForKeepSpans(dbfs, cfg, 1.0, silenceCuts)
	require.Len(t, breaths, 1)
	assert.InDelta(t, 0.6, breaths[0].Start, 1e-9)
	assert.InDelta(t, 0.8, breaths[0].End, 1e-9)
}

func TestMergeBreathCutsNoOpWhenDisabled(t *testing.T) {
	cfg := types.DefaultAnalysisConfig()
	cfg.BreathDetection = false

	silenceCuts := []types.Cut{types.NewCut(1, 2, types.CutSilence)}
	got := MergeBreathCuts(nil, cfg, 10, silenceCuts)

	assert.Equal(t, silenceCuts, got)
}

func TestDetectBreathsFiltersOutOfBandDurations(t *testing.T) {
	cfg := types.DefaultAnalysisConfig()
	cfg.BreathDetection = true
	cfg.BreathThresholdDB = -45
	cfg.BreathMinDurationMs = 100
	cfg.BreathMaxDurationMs = 400

	// 10ms frames: 5 frames = 50ms (too short), then 20 frames = 200ms (valid breath).
	dbfs := make([]float64, 0, 30)
	for i := 0; i < 5; i++ {
		dbfs = append(dbfs, -50)
	}

	dbfs = append(dbfs, 0)

	for i := 0; i < 20; i++ {
		dbfs = append(dbfs, -50)
	}

	cuts := DetectBreaths(dbfs, 10, 100, cfg)
	require.Len(t, cuts, 1)
	assert.Equal(t, types.CutBreath, cuts[0].Type)
	assert.False(t, cuts[0].Enabled)
	assert.InDelta(t, 100.06, cuts[0].Start, 1e-6)
}
