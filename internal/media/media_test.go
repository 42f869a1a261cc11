package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/types"
)

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseFrameRate("2997/100"), 1e-6)
	assert.InDelta(t, 30, parseFrameRate("30/1"), 1e-9)
	assert.Equal(t, float64(0), parseFrameRate("garbage"))
	assert.Equal(t, float64(0), parseFrameRate("1/0"))
}

func TestBuildConcatFilterWithVideo(t *testing.T) {
	segs := []types.Segment{{Start: 0, End: 5}, {Start: 10, End: 15}}

	filter, labels := buildConcatFilter(segs, true)

	assert.Contains(t, filter, "[0:v]trim=start=0.000:end=5.000")
	assert.Contains(t, filter, "[0:a]atrim=start=10.000:end=15.000")
	assert.Contains(t, filter, "concat=n=2:v=1:a=1[outv][outa]")
	assert.Equal(t, []string{"outv", "outa"}, labels)
}

func TestBuildConcatFilterAudioOnly(t *testing.T) {
	segs := []types.Segment{{Start: 0, End: 5}}

	filter, labels := buildConcatFilter(segs, false)

	assert.NotContains(t, filter, "[0:v]")
	assert.Contains(t, filter, "concat=n=1:v=0:a=1[outa]")
	assert.Equal(t, []string{"outa"}, labels)
}

func TestParseSilenceDetectPairsStartAndEnd(t *testing.T) {
	output := `[silencedetect @ 0x1] silence_start: 2.5
[silencedetect @ 0x1] silence_end: 4.1 | silence_duration: 1.6
[silencedetect @ 0x1] silence_start: 10
[silencedetect @ 0x1] silence_end: 10.8 | silence_duration: 0.8`

	segments := parseSilenceDetect(output)
	require.Len(t, segments, 2)
	assert.InDelta(t, 2.5, segments[0].Start, 1e-9)
	assert.InDelta(t, 4.1, segments[0].End, 1e-9)
	assert.InDelta(t, 10.0, segments[1].Start, 1e-9)
	assert.InDelta(t, 10.8, segments[1].End, 1e-9)
}

func TestParseSilenceDetectIgnoresUnmatchedEnd(t *testing.T) {
	output := `[silencedetect @ 0x1] silence_end: 4.1 | silence_duration: 1.6`

	segments := parseSilenceDetect(output)
	assert.Empty(t, segments)
}

func TestClamp(t *testing.T) {
	assert.InDelta(t, 10.0, clamp(-5, 10, 95), 1e-9)
	assert.InDelta(t, 95.0, clamp(200, 10, 95), 1e-9)
	assert.InDelta(t, 50.0, clamp(50, 10, 95), 1e-9)
}

func TestRingBufferKeepsLastTwentyLines(t *testing.T) {
	var rb ringBuffer

	for i := 0; i < 25; i++ {
		_, _ = rb.Write([]byte("line\n"))
	}

	assert.Len(t, rb.lines, 20)
}
