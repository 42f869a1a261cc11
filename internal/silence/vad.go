package silence

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

const (
	vadWindowSize = 512
	vadModelEnv   = "AUTOCUT_VAD_MODEL_PATH"
)

var vadSupportedSampleRates = map[int]bool{8000: true, 16000: true, 32000: true, 48000: true} //nolint:gochecknoglobals

// detectFromVAD is the VAD-assisted variant: stages 1-4 (framing, adaptive
// threshold, hysteresis, run extraction) are replaced by a single Silero
// VAD pass over the whole stream whose speech spans are inverted into
// silent segments; stages 5-7 (duration filter, merge, pad) are the same
// FilterMergePad the native pipeline uses. An unsupported sample rate, a
// missing model or a detector that fails to initialize falls back to the
// native dBFS pipeline with a logged warning rather than failing the
// analysis outright.
func detectFromVAD(r io.Reader, format types.PCMFormat, cfg types.AnalysisConfig) ([]types.Cut, error) {
	samples, totalSamples, err := decodeMonoFloat32(r, format)
	if err != nil {
		return nil, err
	}

	if len(samples) == 0 {
		return nil, nil
	}

	duration := float64(totalSamples) / float64(format.SampleRate)

	// Computed once regardless of branch: the fallback path needs it to
	// run stages 2-7 at all, and the breath pass needs it whichever branch
	// produces the final SILENCE cuts.
	dbfs := dbfsFromSamples(samples, format.SampleRate, cfg.FrameMs)

	modelPath, haveModel := vadModelPath()
	if !haveModel || !vadSupportedSampleRates[format.SampleRate] {
		slog.Warn("silence.Detect: VAD unavailable, falling back to native pipeline",
			"sample_rate", format.SampleRate, "model_found", haveModel)

		return buildCuts(detectFromFrames(dbfs, cfg, duration), dbfs, cfg, duration), nil
	}

	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           format.SampleRate,
		WindowSize:           vadWindowSize,
		Threshold:            vadThreshold(cfg.VADAggressiveness),
		MinSilenceDurationMs: cfg.SilenceMinDurationMs,
		SpeechPadMs:          cfg.PostPadMs,
	})
	if err != nil {
		slog.Warn("silence.Detect: VAD detector init failed, falling back to native pipeline", "error", err)

		return buildCuts(detectFromFrames(dbfs, cfg, duration), dbfs, cfg, duration), nil
	}
	defer detector.Destroy() //nolint:errcheck

	speechSegments, err := detector.Detect(samples)
	if err != nil {
		return nil, fmt.Errorf("%w: silero-vad detection: %w", fault.ErrInvalidAudio, err)
	}

	silent := invertToSilence(speechSegments, duration)

	return buildCuts(FilterMergePad(silent, cfg, duration), dbfs, cfg, duration), nil
}

// invertToSilence complements a sorted, non-overlapping speech-segment list
// against [0, duration] to produce the silent gaps between (and around)
// speech, the same left-to-right cursor sweep internal/timeline uses to
// complement cuts against a duration.
func invertToSilence(speechSegments []speech.Segment, duration float64) []types.AudioSegment {
	var silent []types.AudioSegment

	cursor := 0.0

	for _, s := range speechSegments {
		if s.SpeechStartAt > cursor {
			silent = append(silent, types.AudioSegment{Start: cursor, End: s.SpeechStartAt, IsSilence: true})
		}

		cursor = max(cursor, s.SpeechEndAt)
	}

	if cursor < duration {
		silent = append(silent, types.AudioSegment{Start: cursor, End: duration, IsSilence: true})
	}

	return silent
}

// vadThreshold maps the 0..3 aggressiveness knob (matching the WebRTC VAD
// convention the reference project's configuration table borrows from) onto
// Silero's speech-probability threshold: more aggressive means harder to
// classify as speech, i.e. a higher threshold. Settings below 0 give the
// base threshold, and the result never exceeds 1.
func vadThreshold(aggressiveness int) float32 {
	const base, step = 0.3, 0.1

	t := base + step*float64(aggressiveness)

	return float32(min(max(t, base), 1))
}

// vadModelPath locates the Silero VAD ONNX model, checking an explicit
// environment override (AUTOCUT_VAD_MODEL_PATH) before the
// executable-relative models/silero_vad.onnx.
func vadModelPath() (string, bool) {
	if p := os.Getenv(vadModelEnv); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return "", false
	}

	candidate := filepath.Join(filepath.Dir(exe), "models", "silero_vad.onnx")
	if _, err := os.Stat(candidate); err != nil {
		return "", false
	}

	return candidate, true
}

// decodeMonoFloat32 reads the whole PCM stream, averaging channels down to
// mono float32 samples in [-1, 1], the format Silero VAD expects.
func decodeMonoFloat32(r io.Reader, format types.PCMFormat) ([]float32, int64, error) {
	bytesPerSample := int(format.BitDepth / 8)
	numChannels := int(format.Channels)

	if numChannels == 0 {
		numChannels = 1
	}

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

	frameBytes := bytesPerSample * numChannels
	buf := make([]byte, frameBytes*4096)

	var (
		samples []float32
		total   int64
	)

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			complete := (n / frameBytes) * frameBytes
			for i := 0; i < complete; i += frameBytes {
				var sum float64

				for c := 0; c < numChannels; c++ {
					sum += decodeSample(buf[i+c*bytesPerSample:], format.BitDepth, maxVal)
				}

				samples = append(samples, float32(sum/float64(numChannels)))
				total++
			}
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}

		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", fault.ErrInvalidAudio, err)
		}
	}

	return samples, total, nil
}

func decodeSample(data []byte, bitDepth types.BitDepth, maxVal float64) float64 {
	switch bitDepth {
	case types.Depth16:
		return float64(int16(binary.LittleEndian.Uint16(data))) / maxVal
	case types.Depth24:
		raw := int32(data[0]) | int32(data[1])<<8 | int32(data[2])<<16
		if raw&0x800000 != 0 {
			raw |= ^0xFFFFFF
		}

		return float64(raw) / maxVal
	case types.Depth32:
		return float64(int32(binary.LittleEndian.Uint32(data))) / maxVal
	default:
		return 0
	}
}

// dbfsFromSamples frame-splits an already-decoded mono float32 array and
// computes each frame's RMS dBFS, the fallback path's equivalent of
// frameEnergies when the source has already been read into memory for VAD.
func dbfsFromSamples(samples []float32, sampleRate, frameMs int) []float64 {
	frameLen := max(sampleRate*frameMs/1000, 1)

	dbfs := make([]float64, 0, len(samples)/frameLen+1)

	for start := 0; start+frameLen <= len(samples); start += frameLen {
		var sumSq float64

		for _, s := range samples[start : start+frameLen] {
			v := float64(s)
			sumSq += v * v
		}

		rms := math.Sqrt(sumSq / float64(frameLen))
		dbfs = append(dbfs, 20*math.Log10(max(rms, 1e-10)))
	}

	return dbfs
}
