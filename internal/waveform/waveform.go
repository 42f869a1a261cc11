// Package waveform builds bucketed min/max peak arrays from a PCM stream,
// with a content-fingerprinted on-disk cache so re-opening the same file
// skips the linear pass entirely.
package waveform

import (
	"compress/gzip"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

// DefaultResolutions is the multi-resolution variant's bucket-size ladder,
// grounded on the reference project's generate_multi_resolution.
var DefaultResolutions = []int{64, 256, 1024, 4096}

// Generator builds WaveformData for 16-bit mono PCM streams, optionally
// caching results under cacheDir.
type Generator struct {
	SamplesPerBucket int
	CacheDir         string
}

// NewGenerator returns a Generator with the given bucket size. An empty
// cacheDir disables caching.
func NewGenerator(samplesPerBucket int, cacheDir string) *Generator {
	return &Generator{SamplesPerBucket: samplesPerBucket, CacheDir: cacheDir}
}

// Generate reads 16-bit mono PCM from sourcePath (used only for cache-key
// fingerprinting and logging) via r, building bucketed peaks at
// g.SamplesPerBucket. A cache hit short-circuits the linear pass entirely.
func (g *Generator) Generate(sourcePath string, r io.Reader, sampleRate int) (types.WaveformData, error) {
	cachePath, cacheOK := g.cachePath(sourcePath)

	if cacheOK {
		if wf, err := loadCache(cachePath); err == nil {
			slog.Debug("waveform.Generate", "source", sourcePath, "cache", "hit")

			return wf, nil
		}
	}

	slog.Debug("waveform.Generate", "source", sourcePath, "cache", "miss")

	wf, err := g.generateFromPCM(r, sampleRate)
	if err != nil {
		return types.WaveformData{}, err
	}

	if cacheOK {
		if err := saveCache(cachePath, wf); err != nil {
			slog.Warn("waveform.Generate: cache save failed", "error", err)
		}
	}

	return wf, nil
}

// GenerateMultiResolution builds a WaveformData at every entry of
// DefaultResolutions, sharing the same cache directory but one cache file
// per resolution (the cache key already includes samples_per_bucket).
func GenerateMultiResolution(
	sourcePath string,
	open func() (io.ReadCloser, error),
	sampleRate int,
	cacheDir string,
) (map[int]types.WaveformData, error) {
	result := make(map[int]types.WaveformData, len(DefaultResolutions))

	for _, res := range DefaultResolutions {
		r, err := open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening source for resolution %d: %w", fault.ErrInvalidAudio, res, err)
		}

		wf, err := NewGenerator(res, cacheDir).Generate(sourcePath, r, sampleRate)

		_ = r.Close()

		if err != nil {
			return nil, err
		}

		result[res] = wf
	}

	return result, nil
}

func (g *Generator) generateFromPCM(r io.Reader, sampleRate int) (types.WaveformData, error) {
	if g.SamplesPerBucket <= 0 {
		return types.WaveformData{}, fmt.Errorf("%w: samples_per_bucket must be > 0", fault.ErrConfigOutOfRange)
	}

	var (
		peaksMin, peaksMax []float32
		bucketMin          = float32(1)
		bucketMax          = float32(-1)
		inBucket           int
		totalSamples       int64
	)

	flush := func() {
		if inBucket == 0 {
			return
		}

		peaksMin = append(peaksMin, bucketMin)
		peaksMax = append(peaksMax, bucketMax)
		bucketMin, bucketMax, inBucket = 1, -1, 0
	}

	buf := make([]byte, 4096)

	var pending []byte

	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)

			consumed := (len(pending) / 2) * 2
			for i := 0; i+1 < consumed; i += 2 {
				s := float32(int16(binary.LittleEndian.Uint16(pending[i:]))) / 32768.0

				bucketMin = min(bucketMin, s)
				bucketMax = max(bucketMax, s)
				inBucket++
				totalSamples++

				if inBucket == g.SamplesPerBucket {
					flush()
				}
			}

			pending = pending[consumed:]
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return types.WaveformData{}, fmt.Errorf("%w: %w", fault.ErrInvalidAudio, err)
		}
	}

	flush()

	duration := 0.0
	if sampleRate > 0 {
		duration = float64(totalSamples) / float64(sampleRate)
	}

	return types.WaveformData{
		PeaksMin:         peaksMin,
		PeaksMax:         peaksMax,
		SampleRate:       sampleRate,
		SamplesPerBucket: g.SamplesPerBucket,
		TotalSamples:     totalSamples,
		Duration:         duration,
	}, nil
}

// cachePath returns this generator's cache file path for sourcePath, and
// whether caching is enabled and the source is statable.
func (g *Generator) cachePath(sourcePath string) (string, bool) {
	if g.CacheDir == "" {
		return "", false
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", false
	}

	key := fmt.Sprintf("%s:%d:%d:%d", sourcePath, info.ModTime().UnixNano(), info.Size(), g.SamplesPerBucket)
	sum := md5.Sum([]byte(key)) //nolint:gosec

	return filepath.Join(g.CacheDir, fmt.Sprintf("waveform_%x.cache", sum[:8])), true
}

// cacheRecord is the on-disk gob payload. PeaksMin/Max use float32, same as
// the in-memory representation.
type cacheRecord struct {
	PeaksMin         []float32
	PeaksMax         []float32
	SampleRate       int
	SamplesPerBucket int
	TotalSamples     int64
	Duration         float64
}

func loadCache(path string) (types.WaveformData, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.WaveformData{}, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return types.WaveformData{}, fmt.Errorf("%w: %w", fault.ErrCacheCorrupt, err)
	}
	defer gz.Close()

	var rec cacheRecord
	if err := gob.NewDecoder(gz).Decode(&rec); err != nil {
		return types.WaveformData{}, fmt.Errorf("%w: %w", fault.ErrCacheCorrupt, err)
	}

	return types.WaveformData{
		PeaksMin:         rec.PeaksMin,
		PeaksMax:         rec.PeaksMax,
		SampleRate:       rec.SampleRate,
		SamplesPerBucket: rec.SamplesPerBucket,
		TotalSamples:     rec.TotalSamples,
		Duration:         rec.Duration,
	}, nil
}

func saveCache(path string, wf types.WaveformData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(f)

	rec := cacheRecord{
		PeaksMin:         wf.PeaksMin,
		PeaksMax:         wf.PeaksMax,
		SampleRate:       wf.SampleRate,
		SamplesPerBucket: wf.SamplesPerBucket,
		TotalSamples:     wf.TotalSamples,
		Duration:         wf.Duration,
	}

	encErr := gob.NewEncoder(gz).Encode(rec)
	closeGzErr := gz.Close()
	closeFErr := f.Close()

	if encErr != nil || closeGzErr != nil || closeFErr != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("encoding waveform cache: %w", firstNonNil(encErr, closeGzErr, closeFErr))
	}

	return os.Rename(tmp, path)
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	return nil
}

// GetPeaksForRange resamples wf's buckets over [startTime,endTime) down to
// numPoints, matching the reference project's get_peaks_for_range.
func GetPeaksForRange(wf types.WaveformData, startTime, endTime float64, numPoints int) (peaksMin, peaksMax []float32) {
	if numPoints <= 0 || wf.SampleRate <= 0 || wf.SamplesPerBucket <= 0 {
		return nil, nil
	}

	startBucket := int(startTime * float64(wf.SampleRate) / float64(wf.SamplesPerBucket))
	endBucket := int(endTime * float64(wf.SampleRate) / float64(wf.SamplesPerBucket))

	startBucket = max(0, startBucket)
	endBucket = min(wf.NumBuckets(), endBucket)

	if startBucket >= endBucket {
		return make([]float32, numPoints), make([]float32, numPoints)
	}

	srcMin := wf.PeaksMin[startBucket:endBucket]
	srcMax := wf.PeaksMax[startBucket:endBucket]

	if len(srcMin) == numPoints {
		return append([]float32(nil), srcMin...), append([]float32(nil), srcMax...)
	}

	peaksMin = make([]float32, numPoints)
	peaksMax = make([]float32, numPoints)

	for i := 0; i < numPoints; i++ {
		idx := 0
		if numPoints > 1 {
			idx = int(math.Round(float64(i) * float64(len(srcMin)-1) / float64(numPoints-1)))
		}

		peaksMin[i] = srcMin[idx]
		peaksMax[i] = srcMax[idx]
	}

	return peaksMin, peaksMax
}
