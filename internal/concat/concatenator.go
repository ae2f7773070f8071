package concat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"wordreel/internal/config"
	"wordreel/internal/logging"
	"wordreel/internal/media/ffprobe"
	"wordreel/internal/pipeline/errs"
)

// incrementalThreshold is the intermediate count above which "auto" mode
// switches from a single batch concat to incremental folding.
const incrementalThreshold = 50

// Option configures a Concatenator.
type Option func(*Concatenator)

// WithExecutor injects a custom subprocess executor, primarily for tests.
func WithExecutor(e Executor) Option {
	return func(c *Concatenator) {
		if e != nil {
			c.exec = e
		}
	}
}

// DurationProbe reports the duration in seconds of a media file at path.
type DurationProbe interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// WithDurationProbe injects a custom duration prober, primarily for tests.
func WithDurationProbe(p DurationProbe) Option {
	return func(c *Concatenator) {
		if p != nil {
			c.probe = p
		}
	}
}

type ffprobeDurationProbe struct {
	binary string
}

func (p ffprobeDurationProbe) Probe(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, p.binary, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}

// Concatenator joins transcoded intermediates into one output container.
type Concatenator struct {
	binary      string
	probeBinary string
	incremental string
	workDir     string
	exec        Executor
	probe       DurationProbe
	logger      *slog.Logger
}

// New constructs a Concatenator from configuration. workDir is the scratch
// directory manifests and incremental fold outputs are written to.
func New(cfg *config.Config, workDir string, logger *slog.Logger, opts ...Option) *Concatenator {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Concatenator{
		binary:      cfg.Transcode.Binary,
		probeBinary: cfg.Transcode.ProbeBinary,
		incremental: cfg.Concat.Incremental,
		workDir:     workDir,
		exec:        commandExecutor{},
		logger:      logger.With(logging.String(logging.FieldComponent, "concat")),
	}
	c.probe = ffprobeDurationProbe{binary: c.probeBinary}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result reports the joined output's path and total duration, so the
// orchestrator can derive word-level timings from it.
type Result struct {
	OutputPath string
	Duration   float64
}

// Concatenate joins intro (optional), the intermediates in plan order, and
// outro (optional) into outputPath, choosing batch or incremental mode
// according to configuration and intermediate count.
func (c *Concatenator) Concatenate(ctx context.Context, intermediates []string, introPath, outroPath, outputPath string) (Result, error) {
	ordered := make([]string, 0, len(intermediates)+2)
	if introPath != "" {
		ordered = append(ordered, introPath)
	}
	ordered = append(ordered, intermediates...)
	if outroPath != "" {
		ordered = append(ordered, outroPath)
	}
	if len(ordered) == 0 {
		return Result{}, errs.Wrap(errs.ErrConcatFailed, "concat", "concatenate", "no intermediates to join", nil)
	}

	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("prepare concat work dir: %w", err)
	}

	var err error
	if c.useIncremental(len(ordered)) {
		err = c.concatIncremental(ctx, ordered, outputPath)
	} else {
		err = c.concatBatch(ctx, ordered, outputPath)
	}
	if err != nil {
		return Result{}, errs.Wrap(errs.ErrConcatFailed, "concat", "concatenate", "joining intermediates failed", err)
	}

	duration, err := c.probeDuration(ctx, outputPath)
	if err != nil {
		return Result{}, errs.Wrap(errs.ErrConcatFailed, "concat", "probe output", "could not determine output duration", err)
	}
	return Result{OutputPath: outputPath, Duration: duration}, nil
}

func (c *Concatenator) useIncremental(n int) bool {
	switch c.incremental {
	case "true":
		return true
	case "false":
		return false
	default: // "auto"
		return n > incrementalThreshold
	}
}

// concatBatch writes a single concat manifest and stream-copies all inputs
// in one ffmpeg invocation.
func (c *Concatenator) concatBatch(ctx context.Context, paths []string, outputPath string) error {
	manifestPath, err := writeManifest(c.workDir, paths)
	if err != nil {
		return err
	}
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outputPath,
	}
	return c.run(ctx, args)
}

// concatIncremental folds intermediates left to right, two at a time, so
// memory usage stays bounded regardless of intermediate count.
func (c *Concatenator) concatIncremental(ctx context.Context, paths []string, outputPath string) error {
	running := paths[0]
	for i := 1; i < len(paths); i++ {
		next := paths[i]
		dest := outputPath
		if i < len(paths)-1 {
			dest = filepath.Join(c.workDir, fmt.Sprintf("fold-%s.mp4", uuid.NewString()))
		}
		if err := c.concatBatch(ctx, []string{running, next}, dest); err != nil {
			return fmt.Errorf("fold step %d: %w", i, err)
		}
		running = dest
	}
	if running != outputPath {
		return os.Rename(running, outputPath)
	}
	return nil
}

func (c *Concatenator) probeDuration(ctx context.Context, path string) (float64, error) {
	return c.probe.Probe(ctx, path)
}

func (c *Concatenator) run(ctx context.Context, args []string) error {
	var stderrLines []string
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		stderrLines = append(stderrLines, line)
	})
	if err != nil {
		if len(stderrLines) > 0 {
			return fmt.Errorf("%s: %w", stderrLines[len(stderrLines)-1], err)
		}
		return err
	}
	return nil
}
