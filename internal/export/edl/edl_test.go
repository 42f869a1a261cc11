package edl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/export/edl"
	"github.com/farcloser/autocut/internal/types"
)

func TestFramesToTimecodeNonDropFrame(t *testing.T) {
	assert.Equal(t, "00:00:01:00", edl.FramesToTimecode(30, 30, false))
	assert.Equal(t, "00:01:00:00", edl.FramesToTimecode(1800, 30, false))
}

func TestFramesToTimecodeDropFrameBoundaries(t *testing.T) {
	assert.Equal(t, "00:00:00;00", edl.FramesToTimecode(0, 29.97, true))
	assert.Equal(t, "00:10:00;00", edl.FramesToTimecode(17982, 29.97, true))
}

func TestBuildOneEventPerKeepSegmentDropFrame(t *testing.T) {
	media := types.MediaInfo{FilePath: "/clips/take1.mov", Duration: 600, FPS: 29.97}
	segments := []types.Segment{{Start: 0, End: 600}}

	out, err := edl.Build("", "", media, segments, true)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "FCM: DROP FRAME")
	assert.Equal(t, 1, strings.Count(s, "AX       V     C"))
	assert.Contains(t, s, "00:00:00;00 00:10:00;00 00:00:00;00 00:10:00;00")
	assert.Contains(t, s, "* FROM CLIP NAME: take1.mov")
}

func TestBuildEventCountMatchesSegmentsAndRecOutAccumulates(t *testing.T) {
	media := types.MediaInfo{FilePath: "/clips/a.mp4", Duration: 100, FPS: 30}
	segments := []types.Segment{
		{Start: 0, End: 10},
		{Start: 20, End: 30},
	}

	out, err := edl.Build("Proj", "a.mp4", media, segments, false)
	require.NoError(t, err)

	s := string(out)
	assert.Equal(t, 2, strings.Count(s, "AX       V     C"))
	assert.Contains(t, s, "001  AX")
	assert.Contains(t, s, "002  AX")
	// Second event's REC_IN/REC_OUT reflect cumulative timeline position.
	assert.Contains(t, s, "00:00:10:00 00:00:20:00")
}

func TestBuildRejectsEmptySegments(t *testing.T) {
	media := types.MediaInfo{FilePath: "/clips/a.mp4", Duration: 100, FPS: 30}

	_, err := edl.Build("Proj", "a.mp4", media, nil, false)
	require.Error(t, err)
}
