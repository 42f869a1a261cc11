package fcpxml_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/export/fcpxml"
	"github.com/farcloser/autocut/internal/types"
)

func twoKeepCutsMedia() (types.MediaInfo, []types.Segment) {
	media := types.MediaInfo{
		FilePath: "/movies/source.mp4",
		Duration: 120,
		FPS:      29.97,
		Width:    1920,
		Height:   1080,
	}

	segments := []types.Segment{
		{Start: 0, End: 10},
		{Start: 20, End: 60},
		{Start: 80, End: 120},
	}

	return media, segments
}

func TestBuildProducesWellFormedDocumentWithDoctype(t *testing.T) {
	media, segments := twoKeepCutsMedia()

	out, err := fcpxml.Build("My Project", media, segments)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<!DOCTYPE fcpxml>")
	assert.Contains(t, s, `<fcpxml version="1.10">`)

	// Strip the doctype line before handing to encoding/xml, which has no
	// notion of a standalone DOCTYPE declaration.
	withoutDoctype := strings.Replace(s, "<!DOCTYPE fcpxml>\n", "", 1)

	var probe struct {
		XMLName xml.Name `xml:"fcpxml"`
	}
	require.NoError(t, xml.Unmarshal([]byte(withoutDoctype), &probe))
	assert.Equal(t, "fcpxml", probe.XMLName.Local)
}

func TestBuildAssetClipCountMatchesKeepSegments(t *testing.T) {
	media, segments := twoKeepCutsMedia()

	out, err := fcpxml.Build("My Project", media, segments)
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(string(out), "<asset-clip"))
}

func TestBuildRationalTimeOffsetsAndStarts(t *testing.T) {
	media, segments := twoKeepCutsMedia()

	out, err := fcpxml.Build("My Project", media, segments)
	require.NoError(t, err)

	s := string(out)
	for _, want := range []string{
		`offset="0/30000s"`,
		`offset="300300/30000s"`,
		`offset="1500499/30000s"`,
		`start="0/30000s"`,
		`start="599599/30000s"`,
		`start="2400398/30000s"`,
	} {
		assert.Contains(t, s, want)
	}
}

func TestBuildMediaRepSrcDecodesToAbsoluteSourcePath(t *testing.T) {
	media, segments := twoKeepCutsMedia()

	out, err := fcpxml.Build("My Project", media, segments)
	require.NoError(t, err)

	assert.Contains(t, string(out), `src="file:///movies/source.mp4"`)
}

func TestBuildRejectsEmptySegments(t *testing.T) {
	media, _ := twoKeepCutsMedia()

	_, err := fcpxml.Build("My Project", media, nil)
	require.Error(t, err)
}
