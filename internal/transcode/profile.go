package transcode

import "fmt"

// Profile is the fixed encode target every intermediate and the final output
// must share, so that batch concatenation can stream-copy without
// re-encoding.
type Profile struct {
	Width, Height int
	FrameRate     int
	AudioRate     int
}

// profileFor resolves the target resolution for one of the three supported
// aspect ratios, defaulting to 16:9 for an unrecognized or empty value.
func profileFor(aspectRatio string) Profile {
	base := Profile{FrameRate: 30, AudioRate: 48000}
	switch aspectRatio {
	case "9:16":
		base.Width, base.Height = 720, 1280
	case "1:1":
		base.Width, base.Height = 720, 720
	default:
		base.Width, base.Height = 1280, 720
	}
	return base
}

func (p Profile) scalePadFilter() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		p.Width, p.Height, p.Width, p.Height,
	)
}

const (
	videoCodec            = "libx264"
	videoProfile          = "high"
	videoLevel            = "3.1"
	pixelFormat           = "yuv420p"
	audioCodec            = "aac"
	loudnessTargetDefault = -16.0
)
