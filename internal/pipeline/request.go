package pipeline

import (
	"strings"

	"wordreel/internal/language"
	"wordreel/internal/pipeline/errs"
)

// Request describes one video-composition job.
type Request struct {
	Text                 string
	Lang                 string
	MaxPhraseLength      int
	ClipPaddingStart     float64
	ClipPaddingEnd       float64
	AddSubtitles         bool
	AspectRatio          string
	WatermarkText        string
	IntroText            string
	OutroText            string
	EnhanceAudio         bool
	KeepOriginalAudio    bool
	MaxDownloadWorkers   int
	MaxProcessingWorkers int
	// Debug raises this job's own logger to debug level without touching
	// the process-wide level, so a single noisy/troubleshot request doesn't
	// flood every other concurrent job's output.
	Debug bool
}

// WordTiming is one word's position on the output timeline.
type WordTiming struct {
	Word  string
	Start float64
	End   float64
}

// Result reports the outcome of a composition job.
type Result struct {
	Status            errs.Status
	VideoPath         string
	OriginalVideoPath string
	WordTimings       []WordTiming
	MissingWords      []string
	Message           string
}

const (
	defaultMaxPhraseLength  = 10
	defaultClipPaddingStart = 0.15
	defaultClipPaddingEnd   = 0.15
)

var validAspectRatios = map[string]struct{}{
	"16:9": {}, "9:16": {}, "1:1": {},
}

func (r Request) normalized() (Request, error) {
	out := r
	out.Text = strings.TrimSpace(out.Text)
	if out.Text == "" {
		return Request{}, errs.Wrap(errs.ErrBadRequest, "pipeline", "validate request", "text is required", nil)
	}
	if out.Lang = language.ToISO2(out.Lang); out.Lang == "" {
		out.Lang = "en"
	}
	if out.MaxPhraseLength <= 0 {
		out.MaxPhraseLength = defaultMaxPhraseLength
	}
	if out.MaxPhraseLength > 50 {
		out.MaxPhraseLength = 50
	}
	if out.ClipPaddingStart == 0 {
		out.ClipPaddingStart = defaultClipPaddingStart
	}
	if out.ClipPaddingEnd == 0 {
		out.ClipPaddingEnd = defaultClipPaddingEnd
	}
	if out.AspectRatio == "" {
		out.AspectRatio = "16:9"
	}
	if _, ok := validAspectRatios[out.AspectRatio]; !ok {
		return Request{}, errs.Wrap(errs.ErrBadRequest, "pipeline", "validate request", "aspectRatio must be one of 16:9, 9:16, 1:1", nil)
	}
	return out, nil
}
