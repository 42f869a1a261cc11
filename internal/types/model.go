package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MediaInfo is the immutable descriptor of a source file, produced once by
// the Media Probe and never mutated afterward.
type MediaInfo struct {
	FilePath   string
	Duration   float64 // seconds
	FPS        float64
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	SampleRate int // Hz
	Channels   int
	BitDepth   int
	FileSize   int64 // bytes

	ProxyPath string // populated once a proxy has been generated
	AudioPath string // populated once audio has been extracted
}

func (m MediaInfo) HasVideo() bool { return m.Width > 0 && m.Height > 0 }
func (m MediaInfo) HasAudio() bool { return m.SampleRate > 0 }

// TotalFrames is the video frame count implied by Duration and FPS.
func (m MediaInfo) TotalFrames() int64 {
	if m.FPS <= 0 {
		return 0
	}

	return int64(m.Duration * m.FPS)
}

// TotalSamples is the audio sample count implied by Duration and SampleRate.
func (m MediaInfo) TotalSamples() int64 {
	return int64(m.Duration * float64(m.SampleRate))
}

func (m MediaInfo) TimeToFrame(sec float64) int64 {
	if m.FPS <= 0 {
		return 0
	}

	return int64(sec * m.FPS)
}

func (m MediaInfo) FrameToTime(frame int64) float64 {
	if m.FPS <= 0 {
		return 0
	}

	return float64(frame) / m.FPS
}

func (m MediaInfo) TimeToSamples(sec float64) int64 {
	return int64(sec * float64(m.SampleRate))
}

func (m MediaInfo) SamplesToTime(samples int64) float64 {
	if m.SampleRate <= 0 {
		return 0
	}

	return float64(samples) / float64(m.SampleRate)
}

// AudioSegment is the Silence Detector's internal working unit. It never
// escapes a single detector invocation.
type AudioSegment struct {
	Start     float64 // seconds
	End       float64 // seconds
	AvgDB     float64
	PeakDB    float64
	IsSilence bool
}

func (s AudioSegment) Duration() float64 {
	return s.End - s.Start
}

// Overlaps reports whether s and other share any interior point.
func (s AudioSegment) Overlaps(other AudioSegment) bool {
	return s.Start < other.End && s.End > other.Start
}

// MergeWith fuses s and other into their span union. AvgDB is averaged,
// PeakDB and IsSilence follow the more conservative (max / AND) reading.
func (s AudioSegment) MergeWith(other AudioSegment) AudioSegment {
	return AudioSegment{
		Start:     min(s.Start, other.Start),
		End:       max(s.End, other.End),
		AvgDB:     (s.AvgDB + other.AvgDB) / 2,
		PeakDB:    max(s.PeakDB, other.PeakDB),
		IsSilence: s.IsSilence && other.IsSilence,
	}
}

// CutType classifies a Cut's role on the timeline.
type CutType string

const (
	CutSilence CutType = "silence"
	CutBreath  CutType = "breath"
	CutKeep    CutType = "keep"
	CutManual  CutType = "manual"
)

// Cut is a stable, identified interval on the timeline. Cuts are created by
// the detector or the user and mutated only through the Timeline API.
type Cut struct {
	ID      string
	Start   float64
	End     float64
	Type    CutType
	Enabled bool
	Label   string

	SourceAvgDB  float64
	SourcePeakDB float64
}

// NewCut constructs a Cut with a fresh short id, matching the eight
// hex-character tokens the reference project file uses.
func NewCut(start, end float64, cutType CutType) Cut {
	return Cut{
		ID:           uuid.NewString()[:8],
		Start:        start,
		End:          end,
		Type:         cutType,
		Enabled:      true,
		SourceAvgDB:  -60.0,
		SourcePeakDB: -60.0,
	}
}

func (c Cut) Duration() float64 {
	return c.End - c.Start
}

// IsRemovable reports whether this cut, as currently enabled/typed, removes
// time from the final output.
func (c Cut) IsRemovable() bool {
	return c.Enabled && (c.Type == CutSilence || c.Type == CutBreath)
}

// ToMap renders the Cut for JSON persistence, mirroring the reference
// project file's cut schema field-for-field.
func (c Cut) ToMap() map[string]any {
	return map[string]any{
		"id":             c.ID,
		"start":          c.Start,
		"end":            c.End,
		"cut_type":       string(c.Type),
		"enabled":        c.Enabled,
		"label":          c.Label,
		"source_avg_db":  c.SourceAvgDB,
		"source_peak_db": c.SourcePeakDB,
	}
}

// CutFromMap reconstructs a Cut from the map produced by ToMap, applying the
// same defaults the reference project loader uses for missing fields.
func CutFromMap(data map[string]any) (Cut, error) {
	c := Cut{
		Type:         CutSilence,
		Enabled:      true,
		SourceAvgDB:  -60.0,
		SourcePeakDB: -60.0,
	}

	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.NewString()[:8]
	}

	c.ID = id

	start, ok := data["start"].(float64)
	if !ok {
		return Cut{}, fmt.Errorf("cut %s: missing start", id)
	}

	end, ok := data["end"].(float64)
	if !ok {
		return Cut{}, fmt.Errorf("cut %s: missing end", id)
	}

	c.Start, c.End = start, end

	if ct, ok := data["cut_type"].(string); ok && ct != "" {
		c.Type = CutType(ct)
	}

	if en, ok := data["enabled"].(bool); ok {
		c.Enabled = en
	}

	if label, ok := data["label"].(string); ok {
		c.Label = label
	}

	if v, ok := data["source_avg_db"].(float64); ok {
		c.SourceAvgDB = v
	}

	if v, ok := data["source_peak_db"].(float64); ok {
		c.SourcePeakDB = v
	}

	return c, nil
}

// AnalysisConfig is the closed set of Silence Detector knobs. All recognized
// options are listed below; DefaultAnalysisConfig holds their defaults.
// Validate rejects non-finite thresholds and negative durations; building
// the struct does not run it, silence.Detect does before any work.
type AnalysisConfig struct {
	SilenceThresholdDB float64 // dBFS below which a frame is candidate silent
	HysteresisDB       float64 // half-width of the Schmitt-trigger band

	SilenceMinDurationMs int // minimum length of a detected silent run
	MergeGapMs           int // gaps this close are fused
	KeepShortPausesMs    int // runs shorter than this are discarded (kept as speech); 0 disables

	PrePadMs  int // trim from the start of each silent run
	PostPadMs int // trim from the end of each silent run

	FrameMs int // analysis window size

	UseVAD            bool
	VADAggressiveness int // 0..3

	BreathDetection     bool
	BreathThresholdDB   float64
	BreathMinDurationMs int
	BreathMaxDurationMs int
}

// DefaultAnalysisConfig returns the detector defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SilenceThresholdDB:   -30,
		HysteresisDB:         3,
		SilenceMinDurationMs: 500,
		MergeGapMs:           300,
		KeepShortPausesMs:    150,
		PrePadMs:             100,
		PostPadMs:            150,
		FrameMs:              10,
		UseVAD:               false,
		VADAggressiveness:    2,
		BreathDetection:      false,
		BreathThresholdDB:    -45,
		BreathMinDurationMs:  100,
		BreathMaxDurationMs:  400,
	}
}

// Validate rejects non-finite thresholds and negative durations. Callers
// should wrap the returned error with the engine's ConfigOutOfRange
// sentinel.
func (c AnalysisConfig) Validate() error {
	for name, v := range map[string]float64{
		"silence_threshold_db": c.SilenceThresholdDB,
		"hysteresis_db":        c.HysteresisDB,
		"breath_threshold_db":  c.BreathThresholdDB,
	} {
		if v != v || v > 1e300 || v < -1e300 { // NaN / effectively-infinite guard
			return fmt.Errorf("%s is non-finite: %v", name, v)
		}
	}

	for name, v := range map[string]int{
		"silence_min_duration_ms": c.SilenceMinDurationMs,
		"merge_gap_ms":            c.MergeGapMs,
		"keep_short_pauses_ms":    c.KeepShortPausesMs,
		"pre_pad_ms":              c.PrePadMs,
		"post_pad_ms":             c.PostPadMs,
		"frame_ms":                c.FrameMs,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", name, v)
		}
	}

	if c.FrameMs == 0 {
		return fmt.Errorf("frame_ms must be > 0")
	}

	if c.VADAggressiveness < 0 || c.VADAggressiveness > 3 {
		return fmt.Errorf("vad_aggressiveness must be in 0..3, got %d", c.VADAggressiveness)
	}

	return nil
}

// WaveformData is a bucketed min/max peak representation of a PCM stream.
type WaveformData struct {
	PeaksMin         []float32
	PeaksMax         []float32
	SampleRate       int
	SamplesPerBucket int
	TotalSamples     int64
	Duration         float64
}

func (w WaveformData) NumBuckets() int {
	return len(w.PeaksMin)
}

// Project is the single JSON document holding everything the core needs to
// reopen a prior editing session: the media reference, detector
// configuration and the resulting Cuts.
type Project struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	ModifiedAt time.Time

	Media  *MediaInfo
	Config AnalysisConfig
	Cuts   []Cut

	WaveformCachePath string
}

// NewProject starts a fresh, empty project bound to media.
func NewProject(name string, media *MediaInfo) Project {
	now := time.Now()

	return Project{
		ID:         uuid.NewString(),
		Name:       name,
		CreatedAt:  now,
		ModifiedAt: now,
		Media:      media,
		Config:     DefaultAnalysisConfig(),
	}
}

func (p Project) TotalCutDuration() float64 {
	var total float64

	for _, c := range p.Cuts {
		if c.IsRemovable() {
			total += c.Duration()
		}
	}

	return total
}

func (p Project) FinalDuration() float64 {
	if p.Media == nil {
		return 0
	}

	return p.Media.Duration - p.TotalCutDuration()
}

// Segment is a half-open [Start, End) interval of source time, in seconds.
// The keep-segment sweep that produces these lives in internal/timeline
// (the Timeline Algebra component) to keep that algorithm in one place.
type Segment struct {
	Start float64
	End   float64
}

func (s Segment) Duration() float64 { return s.End - s.Start }
