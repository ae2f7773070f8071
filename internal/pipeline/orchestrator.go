package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"wordreel/internal/concat"
	"wordreel/internal/config"
	"wordreel/internal/enhance"
	"wordreel/internal/fetch"
	"wordreel/internal/fileutil"
	"wordreel/internal/logging"
	"wordreel/internal/normalize"
	"wordreel/internal/pipeline/errs"
	"wordreel/internal/planner"
	"wordreel/internal/textutil"
	"wordreel/internal/transcode"
)

// ProgressFunc is invoked once per pick that finishes materialization
// (clip or placeholder, through transcode), with the running count of
// picks completed so far and the total pick count for the job.
type ProgressFunc func(completed, total int)

// Orchestrator drives one composition job end to end: planning, concurrent
// fetch/transcode, concatenation, and optional audio enhancement.
type Orchestrator struct {
	cfg     *config.Config
	catalog planner.Catalog
	logger  *slog.Logger
}

// New constructs an Orchestrator. cat is typically a *catalog.Store opened
// against cfg.Paths.DBPath, kept as an interface so tests can substitute a
// synthetic catalog.
func New(cfg *config.Config, cat planner.Catalog, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		catalog: cat,
		logger:  logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}
}

// Run executes one composition job from request to finished output file.
// progress, if non-nil, receives a callback after every pick that finishes
// materialization; it may be called concurrently from multiple goroutines.
func (o *Orchestrator) Run(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	req, err := req.normalized()
	if err != nil {
		return Result{Status: errs.StatusFailed, Message: err.Error()}, err
	}

	jobID := uuid.NewString()
	ctx = errs.WithJobID(ctx, jobID)
	jobLogger := o.logger
	if req.Debug {
		jobLogger = logging.WithLevelOverride(jobLogger, slog.LevelDebug)
	}
	logger := logging.WithContext(ctx, jobLogger)

	scratchDir := filepath.Join(o.cfg.Paths.TempDir, "jobs", jobID)
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return Result{Status: errs.StatusFailed, Message: err.Error()}, fmt.Errorf("create job scratch dir: %w", err)
	}
	if o.cfg.Pipeline.CleanupTempFiles {
		defer os.RemoveAll(scratchDir)
	}

	logger.Info("job started", logging.String("text", req.Text))

	tokens := normalize.Tokens(req.Text)
	if len(tokens) == 0 {
		err := errs.Wrap(errs.ErrBadRequest, "pipeline", "tokenize request", "no words found in text after normalization", nil)
		return Result{Status: errs.StatusFailed, Message: err.Error()}, err
	}

	picks, err := planner.Plan(ctx, o.catalog, tokens, req.MaxPhraseLength, req.Lang)
	if err != nil {
		marker := errs.ErrCatalogMiss
		status := errs.StatusFailed
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			marker = errs.ErrCancelled
			status = errs.StatusCancelled
		}
		wrapped := errs.Wrap(marker, "pipeline", "plan", "planning failed", err)
		return Result{Status: status, Message: wrapped.Error()}, wrapped
	}

	fetcher := fetch.New(o.cfg, fetch.CacheDir(o.cfg.Paths.TempDir), logger)
	transcoder := transcode.New(o.cfg, filepath.Join(scratchDir, "intermediates"), logger)
	concatenator := concat.New(o.cfg, filepath.Join(scratchDir, "concat"), logger)

	outcomes, err := o.materialize(ctx, req, picks, fetcher, transcoder, logger, progress)
	if err != nil {
		if errs.IsFatal(err) {
			return Result{Status: errs.JobStatus(err), Message: err.Error()}, err
		}
		return Result{Status: errs.StatusFailed, Message: err.Error()}, err
	}

	var introPath, outroPath string
	var introDuration, outroDuration float64
	if req.IntroText != "" {
		introPath, introDuration, err = o.renderPlaceholder(ctx, transcoder, req.IntroText, req.AspectRatio, make(chan struct{}, 1))
		if err != nil {
			return Result{Status: errs.StatusFailed, Message: err.Error()}, fmt.Errorf("render intro card: %w", err)
		}
	}
	if req.OutroText != "" {
		outroPath, outroDuration, err = o.renderPlaceholder(ctx, transcoder, req.OutroText, req.AspectRatio, make(chan struct{}, 1))
		if err != nil {
			return Result{Status: errs.StatusFailed, Message: err.Error()}, fmt.Errorf("render outro card: %w", err)
		}
	}

	intermediates := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.intermediate != "" {
			intermediates = append(intermediates, outcome.intermediate)
		}
	}
	if len(intermediates) == 0 {
		err := errs.Wrap(errs.ErrConcatFailed, "pipeline", "concatenate", "every pick failed to materialize", nil)
		return Result{Status: errs.StatusFailed, Message: err.Error()}, err
	}

	joinedPath := filepath.Join(scratchDir, "joined.mp4")
	concatResult, err := concatenator.Concatenate(ctx, intermediates, introPath, outroPath, joinedPath)
	if err != nil {
		return Result{Status: errs.StatusFailed, Message: err.Error()}, err
	}

	finalPath := joinedPath
	var warnings []string
	enhanceResult := enhance.Result{VideoPath: joinedPath}
	if req.EnhanceAudio {
		enhancer := enhance.New(o.cfg, filepath.Join(scratchDir, "enhance"), logger, enhance.WithKeepOriginal(req.KeepOriginalAudio))
		enhanceResult = enhancer.Enhance(ctx, joinedPath)
		finalPath = enhanceResult.VideoPath
		if enhanceResult.Warning != "" {
			warnings = append(warnings, enhanceResult.Warning)
		}
	}

	baseName := outputBaseName(req.Text, jobID)
	outputPath, err := o.publish(finalPath, baseName)
	if err != nil {
		return Result{Status: errs.StatusFailed, Message: err.Error()}, fmt.Errorf("publish output: %w", err)
	}

	var originalOutputPath string
	if req.EnhanceAudio && req.KeepOriginalAudio && enhanceResult.Enhanced {
		backup := originalAudioBackupCandidate(finalPath)
		if _, statErr := os.Stat(backup); statErr == nil {
			if p, err := o.publish(backup, baseName+"-original"); err == nil {
				originalOutputPath = p
			}
		}
	}

	timings := wordTimings(tokens, picks, outcomes, introDuration)
	_ = outroDuration // outro duration does not extend word coverage; see DESIGN.md

	missing := planner.MissingWords(picks)
	status := errs.StatusSuccess
	switch {
	case len(missing) > 0 || len(warnings) > 0 || hasPlaceholderOutcome(outcomes):
		status = errs.StatusPartialFailure
	}

	message := fmt.Sprintf("composed %.1fs of video from %d picks", concatResult.Duration, len(picks))
	if len(warnings) > 0 {
		message = fmt.Sprintf("%s (%d warning(s))", message, len(warnings))
	}

	logger.Info("job finished",
		logging.String("status", string(status)),
		logging.Float64("output_duration_seconds", concatResult.Duration),
		logging.Int("pick_count", len(picks)),
		logging.Int("missing_word_count", len(missing)),
	)

	return Result{
		Status:            status,
		VideoPath:         outputPath,
		OriginalVideoPath: originalOutputPath,
		WordTimings:       timings,
		MissingWords:      missing,
		Message:           message,
	}, nil
}

// publish copies src into the configured output directory under name,
// never overwriting an existing file.
func (o *Orchestrator) publish(src, name string) (string, error) {
	if err := o.cfg.EnsureDirectories(); err != nil {
		return "", err
	}
	ext := filepath.Ext(src)
	if ext == "" {
		ext = ".mp4"
	}
	dest := filepath.Join(o.cfg.Paths.OutputDir, name+ext)
	for suffix := 1; ; suffix++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(o.cfg.Paths.OutputDir, fmt.Sprintf("%s-%d%s", name, suffix, ext))
	}
	if err := fileutil.CopyFileVerified(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// outputBaseName derives a human-readable, filesystem-safe output filename
// from the request text, with jobID appended for uniqueness across runs
// that share the same text.
func outputBaseName(text, jobID string) string {
	slug := textutil.SanitizeToken(text)
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "_-")
	}
	shortID := jobID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	return slug + "-" + shortID
}

func originalAudioBackupCandidate(videoPath string) string {
	ext := filepath.Ext(videoPath)
	base := videoPath[:len(videoPath)-len(ext)]
	return base + "_original" + ext
}

func hasPlaceholderOutcome(outcomes []pickOutcome) bool {
	for _, o := range outcomes {
		if o.placeholder || o.warning != "" {
			return true
		}
	}
	return false
}

// wordTimings distributes each pick's materialized duration evenly across
// the tokens it covers, walking the output timeline in plan order starting
// after any intro card. Dropped picks (empty intermediate: a pick whose
// placeholder render failed under the default, non-fatal policy) contribute
// no entries for their tokens.
func wordTimings(tokens []string, picks []planner.Pick, outcomes []pickOutcome, leadIn float64) []WordTiming {
	var timings []WordTiming
	cursor := leadIn
	for i, pick := range picks {
		outcome := outcomes[i]
		if outcome.intermediate == "" {
			continue
		}
		span := pick.WordEnd - pick.WordStart
		if span <= 0 {
			continue
		}
		perWord := outcome.duration / float64(span)
		for w := pick.WordStart; w < pick.WordEnd; w++ {
			start := cursor
			end := start + perWord
			timings = append(timings, WordTiming{Word: tokens[w], Start: start, End: end})
			cursor = end
		}
	}
	return timings
}
