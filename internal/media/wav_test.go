package media_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/autocut/internal/media"
	"github.com/farcloser/autocut/internal/types"
)

func writeMinimalWAV(t *testing.T, sampleRate int, channels, bitsPerSample uint16, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "audio.wav")

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(data)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	byteRate := sampleRate * int(channels) * int(bitsPerSample) / 8
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	blockAlign := int(channels) * int(bitsPerSample) / 8
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(data)))

	require.NoError(t, os.WriteFile(path, append(header, data...), 0o644))

	return path
}

func TestOpenWAVParsesHeaderAndPositionsAtData(t *testing.T) {
	data := []byte{0x01, 0x00, 0x02, 0x00}
	path := writeMinimalWAV(t, 16000, 1, 16, data)

	r, format, err := media.OpenWAV(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, types.PCMFormat{SampleRate: 16000, BitDepth: types.Depth16, Channels: 1}, format)

	rest := make([]byte, len(data))
	n, err := r.Read(rest)
	require.NoError(t, err)
	assert.Equal(t, data, rest[:n])
}

func TestOpenWAVRejectsNonRIFFFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notwav.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all, just junk"), 0o644))

	_, _, err := media.OpenWAV(path)
	require.Error(t, err)
}
