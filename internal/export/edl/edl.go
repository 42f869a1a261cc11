// Package edl serializes a keep-segment list to a CMX 3600 Edit Decision
// List: a plaintext event log DaVinci Resolve, Avid and most other NLEs
// import directly.
package edl

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/farcloser/autocut/internal/fault"
	"github.com/farcloser/autocut/internal/types"
)

// FramesToTimecode renders a frame count as HH:MM:SS:FF (or HH:MM:SS;FF
// under drop-frame), applying the 29.97fps drop-frame correction when
// dropFrame is set and fps is within 0.1 of 29.97.
func FramesToTimecode(frames int, fps float64, dropFrame bool) string {
	if dropFrame && abs(fps-29.97) < 0.1 {
		d := frames / 17982
		m := frames % 17982

		// The standard SMPTE correction only applies once two frames into a
		// block; skipping it for m<=1 keeps exact 10-minute boundaries
		// (m==0) from being over-corrected.
		if m > 1 {
			frames += 18*d + 2*((m-2)/1798)
		} else {
			frames += 18 * d
		}
	}

	fpsInt := int(fps + 0.5)
	if fpsInt <= 0 {
		fpsInt = 1
	}

	totalSeconds := frames / fpsInt
	remainingFrames := frames % fpsInt

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	sep := ":"
	if dropFrame {
		sep = ";"
	}

	return fmt.Sprintf("%02d:%02d:%02d%s%02d", hours, minutes, seconds, sep, remainingFrames)
}

// SecondsToTimecode converts a source-time offset to a timecode string.
func SecondsToTimecode(seconds, fps float64, dropFrame bool) string {
	frames := int(seconds * fps)

	return FramesToTimecode(frames, fps, dropFrame)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// Build renders the CMX 3600 EDL text for title's keep segments, one event
// per segment plus a "FROM CLIP NAME" comment line naming clipFileName.
func Build(title, clipFileName string, media types.MediaInfo, segments []types.Segment, dropFrame bool) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no keep segments to export", fault.ErrInvalidMedia)
	}

	fps := media.FPS
	if fps <= 0 {
		fps = 30.0
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(media.FilePath), filepath.Ext(media.FilePath))
	}

	if clipFileName == "" {
		clipFileName = filepath.Base(media.FilePath)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "TITLE: %s\n", title)

	if dropFrame {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}

	b.WriteString("\n")

	var timelineOffset float64

	for i, seg := range segments {
		dur := seg.Duration()

		srcIn := SecondsToTimecode(seg.Start, fps, dropFrame)
		srcOut := SecondsToTimecode(seg.End, fps, dropFrame)
		recIn := SecondsToTimecode(timelineOffset, fps, dropFrame)
		recOut := SecondsToTimecode(timelineOffset+dur, fps, dropFrame)

		fmt.Fprintf(&b, "%03d  AX       V     C        %s %s %s %s\n", i+1, srcIn, srcOut, recIn, recOut)
		fmt.Fprintf(&b, "* FROM CLIP NAME: %s\n", clipFileName)
		b.WriteString("\n")

		timelineOffset += dur
	}

	return []byte(b.String()), nil
}
