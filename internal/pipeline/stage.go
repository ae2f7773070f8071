package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"wordreel/internal/config"
	"wordreel/internal/fetch"
	"wordreel/internal/logging"
	"wordreel/internal/media/ffprobe"
	"wordreel/internal/pipeline/errs"
	"wordreel/internal/planner"
	"wordreel/internal/transcode"
)

// pickOutcome records what materialize produced for one plan position.
type pickOutcome struct {
	intermediate string // empty if the pick was dropped
	placeholder  bool   // true if a placeholder stood in for a catalog hit
	duration     float64
	warning      string
}

// materialize fetches and transcodes every pick concurrently, bounded by
// separate fetch and processing worker pools, and returns outcomes indexed
// by plan position. Transcoding for a position may begin as soon as its
// fetch completes; callers consume outcomes in order. progress, if non-nil,
// is invoked once per completed pick (through transcode) with the running
// completion count, regardless of which position finished.
func (o *Orchestrator) materialize(ctx context.Context, req Request, picks []planner.Pick, fetcher *fetch.Fetcher, transcoder *transcode.Transcoder, logger *slog.Logger, progress ProgressFunc) ([]pickOutcome, error) {
	n := len(picks)
	outcomes := make([]pickOutcome, n)

	fetchWorkers := req.MaxDownloadWorkers
	if fetchWorkers <= 0 {
		fetchWorkers = o.cfg.Pipeline.FetchWorkers
	}
	if fetchWorkers <= 0 {
		fetchWorkers = 3
	}
	processingWorkers := req.MaxProcessingWorkers
	if processingWorkers <= 0 {
		processingWorkers = o.cfg.Pipeline.ProcessingWorkers
	}
	if processingWorkers <= 0 {
		processingWorkers = 4
	}

	fetchSem := make(chan struct{}, fetchWorkers)
	processSem := make(chan struct{}, processingWorkers)

	var wg sync.WaitGroup
	var fatalOnce sync.Once
	var fatalErr error
	var completed atomic.Int64

	for i, pick := range picks {
		wg.Add(1)
		go func(i int, pick planner.Pick) {
			defer wg.Done()
			pickCtx := errs.WithPickIndex(ctx, i)
			outcome, err := o.renderPick(pickCtx, req, pick, fetcher, transcoder, fetchSem, processSem, logger)
			if err != nil && (errors.Is(err, errs.ErrCancelled) || o.cfg.Pipeline.FailOnAnyTranscodeErr) {
				fatalOnce.Do(func() { fatalErr = err })
				return
			}
			outcomes[i] = outcome
			if progress != nil {
				progress(int(completed.Add(1)), n)
			}
		}(i, pick)
	}
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}
	return outcomes, nil
}

// renderPick materializes one plan position into an intermediate file.
// Catalog misses render as title-card placeholders; fetch or transcode
// failures on an otherwise-matched pick degrade to the same placeholder
// rather than aborting the job.
func (o *Orchestrator) renderPick(ctx context.Context, req Request, pick planner.Pick, fetcher *fetch.Fetcher, transcoder *transcode.Transcoder, fetchSem, processSem chan struct{}, logger *slog.Logger) (pickOutcome, error) {
	if err := ctx.Err(); err != nil {
		return pickOutcome{}, errs.Wrap(errs.ErrCancelled, "pipeline", "render pick", "job cancelled before pick started", err)
	}

	if pick.Kind == planner.PickPlaceholder {
		path, dur, err := o.renderPlaceholder(ctx, transcoder, pick.Text, req.AspectRatio, processSem)
		if err != nil {
			return pickOutcome{warning: fmt.Sprintf("placeholder render failed for %q: %v", pick.Text, err)}, wrapIfFailOnAny(ctx, o.cfg, err)
		}
		return pickOutcome{intermediate: path, placeholder: true, duration: dur}, nil
	}

	fetchSem <- struct{}{}
	sourceFile, fetchErr := fetcher.Fetch(ctx, fetch.Range{VideoID: pick.VideoID, Start: pick.Start, End: pick.End}, req.ClipPaddingStart, req.ClipPaddingEnd)
	<-fetchSem

	if fetchErr != nil {
		logger.Warn("fetch failed, substituting placeholder",
			logging.String("video_id", pick.VideoID),
			logging.Error(fetchErr),
		)
		path, dur, err := o.renderPlaceholder(ctx, transcoder, pick.Text, req.AspectRatio, processSem)
		if err != nil {
			return pickOutcome{warning: fmt.Sprintf("fetch and placeholder fallback both failed for %q: %v", pick.Text, err)}, wrapIfFailOnAny(ctx, o.cfg, err)
		}
		return pickOutcome{intermediate: path, placeholder: true, duration: dur, warning: fmt.Sprintf("fetch failed for %q, used placeholder", pick.Text)}, nil
	}

	duration, probeErr := probeDuration(ctx, o.cfg.Transcode.ProbeBinary, sourceFile)
	if probeErr != nil || duration <= 0 {
		duration = (pick.End - pick.Start) + req.ClipPaddingStart + req.ClipPaddingEnd
	}

	var captions []transcode.Caption
	if req.AddSubtitles {
		captions = []transcode.Caption{{Text: pick.Text, Start: 0, End: duration}}
	}

	processSem <- struct{}{}
	path, transcodeErr := transcoder.Clip(ctx, sourceFile, 0, duration, transcode.ClipOptions{
		AspectRatio:   req.AspectRatio,
		Captions:      captions,
		WatermarkText: req.WatermarkText,
	})
	<-processSem

	if transcodeErr != nil {
		logger.Warn("transcode failed, substituting placeholder",
			logging.String("video_id", pick.VideoID),
			logging.Error(transcodeErr),
		)
		fallback, dur, err := o.renderPlaceholder(ctx, transcoder, pick.Text, req.AspectRatio, processSem)
		if err != nil {
			return pickOutcome{warning: fmt.Sprintf("transcode and placeholder fallback both failed for %q: %v", pick.Text, err)}, wrapIfFailOnAny(ctx, o.cfg, err)
		}
		return pickOutcome{intermediate: fallback, placeholder: true, duration: dur, warning: fmt.Sprintf("transcode failed for %q, used placeholder", pick.Text)}, nil
	}

	finalDuration, probeErr := probeDuration(ctx, o.cfg.Transcode.ProbeBinary, path)
	if probeErr != nil || finalDuration <= 0 {
		finalDuration = duration
	}

	return pickOutcome{intermediate: path, duration: finalDuration}, nil
}

// renderPlaceholder renders a title card and reports its duration, which is
// exact (config-driven), so no post-encode probe is needed.
func (o *Orchestrator) renderPlaceholder(ctx context.Context, transcoder *transcode.Transcoder, text, aspectRatio string, processSem chan struct{}) (string, float64, error) {
	duration := o.cfg.Transcode.PlaceholderDuration
	if duration <= 0 {
		duration = 1.0
	}
	processSem <- struct{}{}
	defer func() { <-processSem }()
	path, err := transcoder.Placeholder(ctx, text, duration, aspectRatio)
	if err != nil {
		return "", 0, err
	}
	return path, duration, nil
}

// wrapIfFailOnAny decides whether a pick-level failure should abort the
// whole job. Cancellation always does, independent of policy: it is not a
// pick quality issue, it means the caller no longer wants the job to run.
// Otherwise it aborts only under the fail-on-any-error policy; by default
// the pick is dropped and the job degrades to a placeholder or partial
// result instead.
func wrapIfFailOnAny(ctx context.Context, cfg *config.Config, err error) error {
	if errors.Is(err, errs.ErrCancelled) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return errs.Wrap(errs.ErrCancelled, "pipeline", "materialize pick", "job cancelled during pick rendering", err)
	}
	if !cfg.Pipeline.FailOnAnyTranscodeErr {
		return nil
	}
	return errs.Wrap(errs.ErrTranscodeFailed, "pipeline", "materialize pick", "pick rendering failed under fail-on-any policy", err)
}

func probeDuration(ctx context.Context, binary, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}
