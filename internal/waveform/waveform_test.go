package waveform_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/waveform"
)

func pcm16(samples ...int16) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}

func TestGenerateBucketsMinMax(t *testing.T) {
	data := pcm16(100, -200, 300, -50, 10, 20, 0, 0, 0)

	gen := waveform.NewGenerator(3, "")

	wf, err := gen.Generate("", bytes.NewReader(data), 16000)
	require.NoError(t, err)
	assert.Equal(t, 3, wf.NumBuckets())
	assert.Equal(t, int64(9), wf.TotalSamples)

	assert.InDelta(t, -200.0/32768.0, wf.PeaksMin[0], 1e-6)
	assert.InDelta(t, 300.0/32768.0, wf.PeaksMax[0], 1e-6)
}

func TestGenerateRejectsZeroBucketSize(t *testing.T) {
	gen := waveform.NewGenerator(0, "")

	_, err := gen.Generate("", bytes.NewReader(nil), 16000)
	require.Error(t, err)
}

func TestGenerateUsesCacheOnSecondCall(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "audio.wav")
	require.NoError(t, os.WriteFile(srcPath, []byte("fake-wav-bytes"), 0o644))

	cacheDir := filepath.Join(dir, "cache")
	gen := waveform.NewGenerator(2, cacheDir)

	data := pcm16(1000, 2000, 3000, 4000)

	first, err := gen.Generate(srcPath, bytes.NewReader(data), 16000)
	require.NoError(t, err)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Second call passes a reader that errors on any use: a cache hit must
	// never touch it.
	second, err := gen.Generate(srcPath, alwaysErrReader{}, 16000)
	require.NoError(t, err)

	assert.Equal(t, first.PeaksMin, second.PeaksMin)
	assert.Equal(t, first.PeaksMax, second.PeaksMax)
}

type alwaysErrReader struct{}

func (alwaysErrReader) Read([]byte) (int, error) {
	panic("cache hit should not read the source")
}

func TestGetPeaksForRangeResamples(t *testing.T) {
	data := pcm16(100, -200, 300, -50, 10, 20, 0, 0, 0, 0, 0, 0)

	gen := waveform.NewGenerator(1, "")

	wf, err := gen.Generate("", bytes.NewReader(data), 12)
	require.NoError(t, err)

	mn, mx := waveform.GetPeaksForRange(wf, 0, 1, 4)
	assert.Len(t, mn, 4)
	assert.Len(t, mx, 4)
}

func TestGetPeaksForRangeEmptyWhenOutOfBounds(t *testing.T) {
	wf, err := waveform.NewGenerator(4, "").Generate("", bytes.NewReader(pcm16(1, 2, 3, 4)), 16000)
	require.NoError(t, err)

	mn, mx := waveform.GetPeaksForRange(wf, 100, 200, 4)
	assert.Equal(t, make([]float32, 4), mn)
	assert.Equal(t, make([]float32, 4), mx)
}
