// Package types holds the shared value types that flow between autocut's
// media, silence-detection, timeline and export packages.
package types

// BitDepth is the sample width of a PCM stream.
type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// PCMFormat describes the layout of an extracted PCM stream: sample rate,
// bit depth and channel count as produced by the Audio Extractor.
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
}
