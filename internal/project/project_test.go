package project_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/project"
	"github.com/farcloser/autocut/internal/types"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	media := &types.MediaInfo{FilePath: "/clips/a.mp4", Duration: 60, FPS: 30, SampleRate: 48000}

	p := types.NewProject("My Edit", media)
	p.Cuts = append(p.Cuts, types.NewCut(1, 2, types.CutSilence))

	path := filepath.Join(t.TempDir(), "project.json")
	require.NoError(t, project.Save(path, p))

	loaded, err := project.Load(path)
	require.NoError(t, err)

	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, p.Name, loaded.Name)
	assert.Equal(t, p.Config, loaded.Config)
	require.Len(t, loaded.Cuts, 1)
	assert.Equal(t, p.Cuts[0].Start, loaded.Cuts[0].Start)
	assert.Equal(t, p.Cuts[0].End, loaded.Cuts[0].End)
	assert.Equal(t, p.Cuts[0].Type, loaded.Cuts[0].Type)
	require.NotNil(t, loaded.Media)
	assert.Equal(t, media.FilePath, loaded.Media.FilePath)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := project.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
