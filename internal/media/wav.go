package media

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

// OpenWAV opens a canonical 44-byte-header PCM WAV file (the shape
// ExtractAudio itself produces) and returns a reader positioned at the
// start of its data chunk alongside the format it declares.
func OpenWAV(path string) (io.ReadCloser, types.PCMFormat, error) {
	f, err := os.Open(path) //nolint:gosec // caller-supplied extracted-audio path
	if err != nil {
		return nil, types.PCMFormat{}, fmt.Errorf("%w: opening %s: %w", fault.ErrInvalidAudio, path, err)
	}

	header := make([]byte, 44)
	if _, err := io.ReadFull(f, header); err != nil {
		_ = f.Close()

		return nil, types.PCMFormat{}, fmt.Errorf("%w: reading wav header: %w", fault.ErrInvalidAudio, err)
	}

	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		_ = f.Close()

		return nil, types.PCMFormat{}, fmt.Errorf("%w: not a RIFF/WAVE file", fault.ErrInvalidAudio)
	}

	channels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	bitDepth, err := toBitDepth(bitsPerSample)
	if err != nil {
		_ = f.Close()

		return nil, types.PCMFormat{}, fmt.Errorf("%w: %w", fault.ErrInvalidAudio, err)
	}

	format := types.PCMFormat{
		SampleRate: int(sampleRate),
		BitDepth:   bitDepth,
		Channels:   uint(channels),
	}

	return f, format, nil
}

func toBitDepth(bits uint16) (types.BitDepth, error) {
	switch bits {
	case 16:
		return types.Depth16, nil
	case 24:
		return types.Depth24, nil
	case 32:
		return types.Depth32, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth %d", bits)
	}
}
