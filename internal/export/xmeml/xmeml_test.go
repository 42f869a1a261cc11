package xmeml_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/export/xmeml"
	"github.com/farcloser/autocut/internal/types"
)

func sampleMedia() (types.MediaInfo, []types.Segment) {
	media := types.MediaInfo{
		FilePath:   "/movies/source.mp4",
		Duration:   90,
		FPS:        30,
		Width:      1920,
		Height:     1080,
		SampleRate: 48000,
		BitDepth:   16,
	}

	segments := []types.Segment{
		{Start: 0, End: 10},
		{Start: 20, End: 60},
	}

	return media, segments
}

func TestBuildProducesWellFormedXmemlV5(t *testing.T) {
	media, segments := sampleMedia()

	out, err := xmeml.Build("My Project", media, segments)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<!DOCTYPE xmeml>")
	assert.Contains(t, s, `<xmeml version="5">`)

	withoutDoctype := strings.Replace(s, "<!DOCTYPE xmeml>\n", "", 1)

	var probe struct {
		XMLName xml.Name `xml:"xmeml"`
	}
	require.NoError(t, xml.Unmarshal([]byte(withoutDoctype), &probe))
	assert.Equal(t, "xmeml", probe.XMLName.Local)
}

func TestBuildClipItemCountMatchesSegmentsTimesTracks(t *testing.T) {
	media, segments := sampleMedia()

	out, err := xmeml.Build("My Project", media, segments)
	require.NoError(t, err)

	// One video + one audio clipitem per keep segment, plus the master
	// clip's own video and audio clipitem.
	assert.Equal(t, 2*len(segments)+2, strings.Count(string(out), "<clipitem"))
}

func TestBuildTicksUseRoundedTimebase(t *testing.T) {
	media, segments := sampleMedia()

	out, err := xmeml.Build("My Project", media, segments)
	require.NoError(t, err)

	// fps=30 -> timebase 30; first segment (0,10) is 300 ticks.
	assert.Contains(t, string(out), "<duration>300</duration>")
}

func TestBuildRejectsEmptySegments(t *testing.T) {
	media, _ := sampleMedia()

	_, err := xmeml.Build("My Project", media, nil)
	require.Error(t, err)
}
