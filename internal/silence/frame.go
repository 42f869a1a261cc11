package silence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

const (
	maxValue16 = 32768.0      // 2^15 — 16-bit signed PCM normalization divisor
	maxValue24 = 8388608.0    // 2^23 — 24-bit signed PCM normalization divisor
	maxValue32 = 2147483648.0 // 2^31 — 32-bit signed PCM normalization divisor

	minDBFloor = -96.0 // db assigned to a frame that decodes no samples; an all-zero frame gets the 1e-10 rms floor, -200 dB
)

// FrameEnergies is pipeline stage 1, exported so alternate backends (the
// ffmpeg-assisted detector's breath pass) can get frame-level dBFS without
// running the rest of the native pipeline over it.
func FrameEnergies(r io.Reader, format types.PCMFormat, frameMs int) ([]float64, int64, error) {
	return frameEnergies(r, format, frameMs)
}

// frameEnergies is pipeline stage 1: split the PCM into non-overlapping
// frames of frameMs and compute each frame's RMS dBFS. The trailing partial
// frame is discarded. Channels are averaged together, matching a mono
// analysis pass over a possibly multi-channel stream.
func frameEnergies(r io.Reader, format types.PCMFormat, frameMs int) ([]float64, int64, error) {
	bytesPerSample := int(format.BitDepth / 8)
	numChannels := int(format.Channels)
	if numChannels == 0 {
		numChannels = 1
	}

	frameSampleLen := max(format.SampleRate*frameMs/1000, 1)
	frameByteLen := bytesPerSample * numChannels * frameSampleLen

	var maxVal float64

	switch format.BitDepth {
	case types.Depth16:
		maxVal = maxValue16
	case types.Depth24:
		maxVal = maxValue24
	case types.Depth32:
		maxVal = maxValue32
	default:
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", fault.ErrInvalidAudio, format.BitDepth)
	}

	buf := make([]byte, frameByteLen)

	var (
		dbfs         []float64
		totalSamples int64
	)

	for {
		n, err := io.ReadFull(r, buf)
		if n == frameByteLen {
			db, samples := decodeFrameDB(buf[:n], format.BitDepth, numChannels, maxVal)
			dbfs = append(dbfs, db)
			totalSamples += samples
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}

		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", fault.ErrInvalidAudio, err)
		}
	}

	return dbfs, totalSamples, nil
}

// decodeFrameDB computes one frame's RMS dBFS, averaged across channels.
func decodeFrameDB(data []byte, bitDepth types.BitDepth, numChannels int, maxVal float64) (float64, int64) {
	var sumSq float64

	var samples int64

	switch bitDepth {
	case types.Depth16:
		for i := 0; i+1 < len(data); i += 2 {
			s := float64(int16(binary.LittleEndian.Uint16(data[i:]))) / maxVal
			sumSq += s * s
			samples++
		}
	case types.Depth24:
		for i := 0; i+2 < len(data); i += 3 {
			raw := int32(data[i]) | int32(data[i+1])<<8 | int32(data[i+2])<<16
			if raw&0x800000 != 0 {
				raw |= ^0xFFFFFF
			}

			s := float64(raw) / maxVal
			sumSq += s * s
			samples++
		}
	case types.Depth32:
		for i := 0; i+3 < len(data); i += 4 {
			s := float64(int32(binary.LittleEndian.Uint32(data[i:]))) / maxVal
			sumSq += s * s
			samples++
		}
	default:
	}

	if samples == 0 {
		return minDBFloor, 0
	}

	rms := math.Sqrt(sumSq / float64(samples))
	db := 20 * math.Log10(max(rms, 1e-10))

	frameSamples := samples / int64(numChannels)
	if frameSamples == 0 {
		frameSamples = samples
	}

	return db, frameSamples
}
