package transcode

import (
	"fmt"
	"strings"
)

// Caption is one word-level subtitle cue, with Start/End measured in seconds
// relative to the start of the clip being encoded (not the source video).
type Caption struct {
	Text  string
	Start float64
	End   float64
}

// escapeDrawtext escapes characters drawtext treats specially inside its
// text/textfile argument.
func escapeDrawtext(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`%`, `\%`,
	)
	return replacer.Replace(s)
}

// titleCardFilter renders a centered caption over a solid background, used
// for placeholder intermediates and intro/outro cards.
func titleCardFilter(text string) string {
	return fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=48:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawtext(text),
	)
}

// captionFilters builds one drawtext stage per caption, each gated to its
// own time window so only one word is visible at a time.
func captionFilters(captions []Caption) []string {
	filters := make([]string, 0, len(captions))
	for _, c := range captions {
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontcolor=white:fontsize=36:x=(w-text_w)/2:y=h-th-40:enable='between(t,%.3f,%.3f)'",
			escapeDrawtext(c.Text), c.Start, c.End,
		))
	}
	return filters
}

// watermarkFilter overlays persistent small text in a corner for the
// duration of the clip.
func watermarkFilter(text string) string {
	return fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white@0.8:fontsize=20:x=w-text_w-16:y=h-text_h-16",
		escapeDrawtext(text),
	)
}

// buildVideoFilterChain composes the scale/pad stage with any requested
// caption and watermark overlays into a single -vf argument.
func buildVideoFilterChain(profile Profile, captions []Caption, watermarkText string) string {
	stages := []string{profile.scalePadFilter()}
	stages = append(stages, captionFilters(captions)...)
	if strings.TrimSpace(watermarkText) != "" {
		stages = append(stages, watermarkFilter(watermarkText))
	}
	return strings.Join(stages, ",")
}
