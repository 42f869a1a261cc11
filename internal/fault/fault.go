// Package fault defines the engine-wide error taxonomy. Sentinels here are
// wrapped with fmt.Errorf("%w: ...", fault.ErrX, detail) the same way
// github.com/farcloser/primordium/fault is used by the media/probe
// integration this module also depends on.
package fault

import "errors"

var (
	// ErrMediaToolMissing means the external media tool was not found in
	// any search tier. Fatal for any job; reported once at startup.
	ErrMediaToolMissing = errors.New("media tool not found")

	// ErrInvalidMedia means probing succeeded but the file has neither
	// video nor audio, or its declared duration is zero.
	ErrInvalidMedia = errors.New("invalid media file")

	// ErrInvalidAudio means PCM extraction failed or produced zero samples.
	ErrInvalidAudio = errors.New("invalid audio stream")

	// ErrConfigOutOfRange means an AnalysisConfig threshold is non-finite or
	// a duration is negative.
	ErrConfigOutOfRange = errors.New("analysis config out of range")

	// ErrSameFileRefused means a render's output path equals its input path.
	ErrSameFileRefused = errors.New("render output path refused: same as input")

	// ErrRenderFailed means the external tool exited non-zero or produced
	// no output file.
	ErrRenderFailed = errors.New("render failed")

	// ErrCancelled means a job observed cancellation at a checkpoint.
	ErrCancelled = errors.New("job cancelled")

	// ErrTimeout means a stage exceeded its wall-clock budget.
	ErrTimeout = errors.New("operation timed out")

	// ErrCacheCorrupt means a waveform cache archive failed to decode; the
	// caller should treat this as a cache miss and recompute.
	ErrCacheCorrupt = errors.New("waveform cache corrupt")
)
