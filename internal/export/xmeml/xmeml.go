// Package xmeml serializes a keep-segment list to the FCP7-style XMEML
// (".xml") interchange format Adobe Premiere Pro and After Effects import
// as "Final Cut Pro XML": one master clip bin plus a sequence with matched
// video/audio clipitems, all timed in integer ticks of a rounded timebase.
package xmeml

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

// pathToURL resolves path to an absolute file://localhost URL, matching the
// reference project's own XMEML path encoding (distinct from FCPXML's,
// which omits the "localhost" host token).
func pathToURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving clip path: %w", fault.ErrInvalidMedia, err)
	}

	u := url.URL{Path: abs}

	return "file://localhost" + u.EscapedPath(), nil
}

type rate struct {
	Timebase int    `xml:"timebase"`
	NTSC     string `xml:"ntsc"`
}

func fixedRate(timebase int) rate {
	return rate{Timebase: timebase, NTSC: "FALSE"}
}

type file struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,omitempty"`
	PathURL  string `xml:"pathurl,omitempty"`
	Duration int    `xml:"duration,omitempty"`
	Rate     *rate  `xml:"rate,omitempty"`
}

type clipItem struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name"`
	Duration int    `xml:"duration"`
	Rate     *rate  `xml:"rate,omitempty"`
	Start    *int   `xml:"start,omitempty"`
	End      *int   `xml:"end,omitempty"`
	In       *int   `xml:"in,omitempty"`
	Out      *int   `xml:"out,omitempty"`
	File     *file  `xml:"file,omitempty"`
}

type track struct {
	ClipItems []clipItem `xml:"clipitem"`
}

type sampleCharacteristics struct {
	Width      int `xml:"width,omitempty"`
	Height     int `xml:"height,omitempty"`
	SampleRate int `xml:"samplerate,omitempty"`
	Depth      int `xml:"depth,omitempty"`
}

type trackFormat struct {
	SampleCharacteristics sampleCharacteristics `xml:"samplecharacteristics"`
}

type videoMedia struct {
	Format trackFormat `xml:"format"`
	Track  track       `xml:"track"`
}

type audioMedia struct {
	Format trackFormat `xml:"format"`
	Track  track       `xml:"track"`
}

type clipMedia struct {
	Video *videoMedia `xml:"video,omitempty"`
	Audio *audioMedia `xml:"audio,omitempty"`
}

type clip struct {
	ID       string    `xml:"id,attr"`
	Name     string    `xml:"name"`
	Duration int       `xml:"duration"`
	Rate     rate      `xml:"rate"`
	Media    clipMedia `xml:"media"`
}

type children struct {
	Bin      bin      `xml:"bin"`
	Sequence sequence `xml:"sequence"`
}

type bin struct {
	Name        string      `xml:"name"`
	BinChildren binChildren `xml:"children"`
}

type binChildren struct {
	Clip clip `xml:"clip"`
}

type timecode struct {
	String string `xml:"string"`
	Frame  int    `xml:"frame"`
	Rate   rate   `xml:"rate"`
}

type sequenceMedia struct {
	Video *videoMedia `xml:"video,omitempty"`
	Audio *audioMedia `xml:"audio,omitempty"`
}

type sequence struct {
	ID       string        `xml:"id,attr"`
	Name     string        `xml:"name"`
	UUID     string        `xml:"uuid"`
	Duration int           `xml:"duration"`
	Rate     rate          `xml:"rate"`
	Timecode timecode      `xml:"timecode"`
	Media    sequenceMedia `xml:"media"`
}

type project struct {
	Name     string   `xml:"name"`
	Children children `xml:"children"`
}

type document struct {
	XMLName xml.Name `xml:"xmeml"`
	Version string   `xml:"version,attr"`
	Project project  `xml:"project"`
}

// Build renders the XMEML document for projectName's keep segments as
// bytes, including the XML declaration and the literal <!DOCTYPE xmeml>
// header (encoding/xml has no direct doctype support).
func Build(projectName string, media types.MediaInfo, segments []types.Segment) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no keep segments to export", fault.ErrInvalidMedia)
	}

	fps := media.FPS
	if fps <= 0 {
		fps = 30.0
	}

	timebase := int(fps + 0.5)

	name := projectName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(media.FilePath), filepath.Ext(media.FilePath))
	}

	masterClip, err := buildMasterClip(media, timebase)
	if err != nil {
		return nil, err
	}

	seq := buildSequence(name, media, segments, timebase, uuid.NewString())

	doc := document{
		Version: "5",
		Project: project{
			Name: name,
			Children: children{
				Bin: bin{
					Name:        "Media",
					BinChildren: binChildren{Clip: masterClip},
				},
				Sequence: seq,
			},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling xmeml: %w", fault.ErrInvalidMedia, err)
	}

	var out strings.Builder

	out.WriteString(xml.Header)
	out.WriteString("<!DOCTYPE xmeml>\n")
	out.Write(body) //nolint:errcheck // strings.Builder.Write never errors
	out.WriteByte('\n')

	return []byte(out.String()), nil
}

func buildMasterClip(media types.MediaInfo, timebase int) (clip, error) {
	duration := int(media.Duration * float64(timebase))
	stem := strings.TrimSuffix(filepath.Base(media.FilePath), filepath.Ext(media.FilePath))

	c := clip{
		ID:       "masterclip-1",
		Name:     stem,
		Duration: duration,
		Rate:     fixedRate(timebase),
	}

	if media.HasVideo() {
		pathURL, err := pathToURL(media.FilePath)
		if err != nil {
			return clip{}, err
		}

		r := fixedRate(timebase)
		fileRate := fixedRate(timebase)

		c.Media.Video = &videoMedia{
			Track: track{ClipItems: []clipItem{{
				ID:       "clipitem-1",
				Name:     stem,
				Duration: duration,
				Rate:     &r,
				File: &file{
					ID:       "file-1",
					Name:     filepath.Base(media.FilePath),
					PathURL:  pathURL,
					Duration: duration,
					Rate:     &fileRate,
				},
			}}},
		}
	}

	if media.HasAudio() {
		c.Media.Audio = &audioMedia{
			Track: track{ClipItems: []clipItem{{
				ID:       "clipitem-2",
				Name:     stem,
				Duration: duration,
			}}},
		}
	}

	return c, nil
}

func buildSequence(
	name string,
	media types.MediaInfo,
	segments []types.Segment,
	timebase int,
	seqUUID string,
) sequence {
	var total float64
	for _, s := range segments {
		total += s.Duration()
	}

	seq := sequence{
		ID:       "sequence-1",
		Name:     name + " - Edited",
		UUID:     seqUUID,
		Duration: int(total * float64(timebase)),
		Rate:     fixedRate(timebase),
		Timecode: timecode{
			String: "00:00:00:00",
			Frame:  0,
			Rate:   fixedRate(timebase),
		},
	}

	if media.HasVideo() {
		seq.Media.Video = &videoMedia{
			Format: trackFormat{SampleCharacteristics: sampleCharacteristics{
				Width:  media.Width,
				Height: media.Height,
			}},
			Track: track{ClipItems: buildClipItems(segments, timebase, "v")},
		}
	}

	if media.HasAudio() {
		seq.Media.Audio = &audioMedia{
			Format: trackFormat{SampleCharacteristics: sampleCharacteristics{
				SampleRate: media.SampleRate,
				Depth:      media.BitDepth,
			}},
			Track: track{ClipItems: buildClipItems(segments, timebase, "a")},
		}
	}

	return seq
}

func buildClipItems(segments []types.Segment, timebase int, prefix string) []clipItem {
	items := make([]clipItem, 0, len(segments))

	var offset float64

	for i, seg := range segments {
		dur := seg.Duration()

		start := int(offset * float64(timebase))
		end := int((offset + dur) * float64(timebase))
		in := int(seg.Start * float64(timebase))
		out := int(seg.End * float64(timebase))

		items = append(items, clipItem{
			ID:       fmt.Sprintf("%s-clipitem-%d", prefix, i+1),
			Name:     fmt.Sprintf("Clip %d", i+1),
			Duration: int(dur * float64(timebase)),
			Start:    &start,
			End:      &end,
			In:       &in,
			Out:      &out,
			File:     &file{ID: "file-1"},
		})

		offset += dur
	}

	return items
}
