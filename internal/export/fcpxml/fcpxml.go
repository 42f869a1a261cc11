// Package fcpxml serializes a keep-segment list to Final Cut Pro X's FCPXML
// 1.10 interchange format: a <fcpxml> document with one shared video
// <format> and <asset>, and one <asset-clip> per kept span on a single
// spine.
package fcpxml

import (
	"encoding/xml"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

const version = "1.10"

// fpsTable maps a broadcast frame rate to its (numerator, denominator) pair
// for rational-time strings, e.g. 29.97fps -> 1001/30000.
var fpsTable = map[float64][2]int{
	23.976: {1001, 24000},
	24.0:   {1, 24},
	25.0:   {1, 25},
	29.97:  {1001, 30000},
	30.0:   {1, 30},
	50.0:   {1, 50},
	59.94:  {1001, 60000},
	60.0:   {1, 60},
}

var nameStripPattern = regexp.MustCompile(`[<>&"']`)

// timeToRational formats seconds as an FCPXML rational time string
// ("numerator/denominator" + "s") quantized to the nearest frame of the
// broadcast rate closest to fps.
func timeToRational(seconds, fps float64) string {
	closest := 30.0
	bestDiff := math.MaxFloat64

	for rate := range fpsTable {
		if diff := math.Abs(rate - fps); diff < bestDiff {
			bestDiff = diff
			closest = rate
		}
	}

	pair := fpsTable[closest]
	numPerFrame, den := pair[0], pair[1]

	frames := math.Round(seconds * float64(den) / float64(numPerFrame))
	numerator := int64(frames) * int64(numPerFrame)

	return fmt.Sprintf("%d/%ds", numerator, den)
}

// pathToURL resolves path to an absolute file:// URL, percent-encoding
// every byte outside [A-Za-z0-9/:@._-].
func pathToURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving asset path: %w", fault.ErrInvalidMedia, err)
	}

	var b strings.Builder

	b.WriteString("file://")

	for i := 0; i < len(abs); i++ {
		c := abs[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || strings.IndexByte("/:@._-", c) >= 0 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}

	return b.String(), nil
}

// sanitizeName strips XML-hostile characters and caps length at 50
// characters, matching the reference project name's own sanitizer.
func sanitizeName(name string) string {
	name = nameStripPattern.ReplaceAllString(name, "")
	if r := []rune(name); len(r) > 50 {
		name = string(r[:50])
	}

	return name
}

type document struct {
	XMLName   xml.Name  `xml:"fcpxml"`
	Version   string    `xml:"version,attr"`
	Resources resources `xml:"resources"`
	Library   library   `xml:"library"`
}

type resources struct {
	Format format `xml:"format"`
	Asset  asset  `xml:"asset"`
}

type format struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	FrameDuration string `xml:"frameDuration,attr"`
	Width         int    `xml:"width,attr"`
	Height        int    `xml:"height,attr"`
}

type asset struct {
	ID       string   `xml:"id,attr"`
	Name     string   `xml:"name,attr"`
	Start    string   `xml:"start,attr"`
	Duration string   `xml:"duration,attr"`
	HasVideo string   `xml:"hasVideo,attr"`
	HasAudio string   `xml:"hasAudio,attr"`
	Format   string   `xml:"format,attr"`
	MediaRep mediaRep `xml:"media-rep"`
}

type mediaRep struct {
	Kind string `xml:"kind,attr"`
	Src  string `xml:"src,attr"`
}

type library struct {
	Event event `xml:"event"`
}

type event struct {
	Name    string  `xml:"name,attr"`
	Project project `xml:"project"`
}

type project struct {
	Name     string   `xml:"name,attr"`
	Sequence sequence `xml:"sequence"`
}

type sequence struct {
	Duration string `xml:"duration,attr"`
	Format   string `xml:"format,attr"`
	TCStart  string `xml:"tcStart,attr"`
	TCFormat string `xml:"tcFormat,attr"`
	Spine    spine  `xml:"spine"`
}

type spine struct {
	Clips []assetClip `xml:"asset-clip"`
}

type assetClip struct {
	Name      string `xml:"name,attr"`
	Ref       string `xml:"ref,attr"`
	Offset    string `xml:"offset,attr"`
	Duration  string `xml:"duration,attr"`
	Start     string `xml:"start,attr"`
	TCFormat  string `xml:"tcFormat,attr"`
	VideoRole string `xml:"videoRole,attr,omitempty"`
	AudioRole string `xml:"audioRole,attr,omitempty"`
}

// Build renders the FCPXML document for media's keep segments as bytes,
// including the XML declaration and the literal <!DOCTYPE fcpxml> the
// format requires (encoding/xml has no direct doctype support).
func Build(projectName string, media types.MediaInfo, segments []types.Segment) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no keep segments to export", fault.ErrInvalidMedia)
	}

	fps := media.FPS
	if fps <= 0 {
		fps = 30.0
	}

	src, err := pathToURL(media.FilePath)
	if err != nil {
		return nil, err
	}

	frameDuration := timeToRational(1.0/fps, fps)

	hasVideo, hasAudio := "0", "0"
	if media.HasVideo() {
		hasVideo = "1"
	}

	if media.HasAudio() {
		hasAudio = "1"
	}

	doc := document{
		Version: version,
		Resources: resources{
			Format: format{
				ID:            "r1",
				Name:          fmt.Sprintf("FFVideoFormat%dp%d", media.Height, int(fps)),
				FrameDuration: frameDuration,
				Width:         media.Width,
				Height:        media.Height,
			},
			Asset: asset{
				ID:       "r2",
				Name:     sanitizeName(filepath.Base(media.FilePath)),
				Start:    "0s",
				Duration: timeToRational(media.Duration, fps),
				HasVideo: hasVideo,
				HasAudio: hasAudio,
				Format:   "r1",
				MediaRep: mediaRep{Kind: "original-media", Src: src},
			},
		},
		Library: library{
			Event: event{
				Name: fmt.Sprintf("AutoCut Export %s", time.Now().Format("2006-01-02")),
				Project: project{
					Name: sanitizeName(projectName),
					Sequence: sequence{
						Duration: timeToRational(totalDuration(segments), fps),
						Format:   "r1",
						TCStart:  "0s",
						TCFormat: "NDF",
						Spine:    spine{Clips: buildClips(segments, fps, media)},
					},
				},
			},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling fcpxml: %w", fault.ErrInvalidMedia, err)
	}

	var out strings.Builder

	out.WriteString(xml.Header)
	out.WriteString("<!DOCTYPE fcpxml>\n")
	out.Write(body) //nolint:errcheck // strings.Builder.Write never errors
	out.WriteByte('\n')

	return []byte(out.String()), nil
}

func buildClips(segments []types.Segment, fps float64, media types.MediaInfo) []assetClip {
	clips := make([]assetClip, 0, len(segments))

	var offset float64

	for i, seg := range segments {
		dur := seg.Duration()

		clip := assetClip{
			Name:     fmt.Sprintf("Clip %d", i+1),
			Ref:      "r2",
			Offset:   timeToRational(offset, fps),
			Duration: timeToRational(dur, fps),
			Start:    timeToRational(seg.Start, fps),
			TCFormat: "NDF",
		}

		if media.HasVideo() {
			clip.VideoRole = "video"
		}

		if media.HasAudio() {
			clip.AudioRole = "dialogue"
		}

		clips = append(clips, clip)
		offset += dur
	}

	return clips
}

func totalDuration(segments []types.Segment) float64 {
	var total float64
	for _, s := range segments {
		total += s.Duration()
	}

	return total
}
