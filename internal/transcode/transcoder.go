package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"wordreel/internal/config"
	"wordreel/internal/logging"
	"wordreel/internal/pipeline/errs"
)

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithExecutor injects a custom subprocess executor, primarily for tests.
func WithExecutor(e Executor) Option {
	return func(t *Transcoder) {
		if e != nil {
			t.exec = e
		}
	}
}

// Transcoder encodes source clips and placeholder cards to the fixed
// intermediate media profile using an ffmpeg subprocess.
type Transcoder struct {
	binary             string
	timeout            time.Duration
	loudnessNormalize  bool
	loudnessTargetLUFS float64
	outDir             string
	exec               Executor
	logger             *slog.Logger
}

// New constructs a Transcoder from configuration. outDir is the scratch
// directory intermediates are written to, typically under the job's temp
// working directory.
func New(cfg *config.Config, outDir string, logger *slog.Logger, opts ...Option) *Transcoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	target := cfg.Transcode.LoudnessTargetLUFS
	if target == 0 {
		target = loudnessTargetDefault
	}
	t := &Transcoder{
		binary:             cfg.Transcode.Binary,
		timeout:            time.Duration(cfg.Transcode.TimeoutSeconds) * time.Second,
		loudnessNormalize:  cfg.Transcode.LoudnessNormalize,
		loudnessTargetLUFS: target,
		outDir:             outDir,
		exec:               commandExecutor{},
		logger:             logger.With(logging.String(logging.FieldComponent, "transcode")),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ClipOptions parameterizes a single clip encode.
type ClipOptions struct {
	AspectRatio   string
	Captions      []Caption
	WatermarkText string
}

// Clip encodes the [inStart, inEnd) window of sourceFile to the fixed
// profile, returning the path to the resulting intermediate.
func (t *Transcoder) Clip(ctx context.Context, sourceFile string, inStart, inEnd float64, opts ClipOptions) (string, error) {
	if inEnd <= inStart {
		return "", errs.Wrap(errs.ErrTranscodeFailed, "transcode", "clip", "end must be after start", nil)
	}
	profile := profileFor(opts.AspectRatio)
	dest := filepath.Join(t.outDir, fmt.Sprintf("clip-%s.mp4", uuid.NewString()))

	args := []string{
		"-y",
		"-ss", formatSeconds(inStart),
		"-to", formatSeconds(inEnd),
		"-i", sourceFile,
		"-vf", buildVideoFilterChain(profile, opts.Captions, opts.WatermarkText),
		"-r", fmt.Sprintf("%d", profile.FrameRate),
		"-c:v", videoCodec,
		"-profile:v", videoProfile,
		"-level:v", videoLevel,
		"-pix_fmt", pixelFormat,
		"-c:a", audioCodec,
		"-ar", fmt.Sprintf("%d", profile.AudioRate),
		"-ac", "2",
	}
	if t.loudnessNormalize {
		args = append(args, "-af", loudnormFilter(t.loudnessTargetLUFS))
	}
	args = append(args, dest)

	if err := t.run(ctx, args); err != nil {
		return "", errs.Wrap(errs.ErrTranscodeFailed, "transcode", "encode clip", "ffmpeg clip encode failed", err)
	}
	return dest, nil
}

// Placeholder renders a solid-color title card with centered text and
// silent audio, at the profile's resolution, for duration seconds.
func (t *Transcoder) Placeholder(ctx context.Context, text string, duration float64, aspectRatio string) (string, error) {
	if duration <= 0 {
		duration = 1.0
	}
	profile := profileFor(aspectRatio)
	dest := filepath.Join(t.outDir, fmt.Sprintf("placeholder-%s.mp4", uuid.NewString()))

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%s", profile.Width, profile.Height, profile.FrameRate, formatSeconds(duration)),
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", profile.AudioRate),
		"-shortest",
		"-vf", titleCardFilter(text),
		"-r", fmt.Sprintf("%d", profile.FrameRate),
		"-c:v", videoCodec,
		"-profile:v", videoProfile,
		"-level:v", videoLevel,
		"-pix_fmt", pixelFormat,
		"-c:a", audioCodec,
		"-ar", fmt.Sprintf("%d", profile.AudioRate),
		"-ac", "2",
		dest,
	}

	if err := t.run(ctx, args); err != nil {
		return "", errs.Wrap(errs.ErrTranscodeFailed, "transcode", "render placeholder", "ffmpeg placeholder render failed", err)
	}
	return dest, nil
}

func (t *Transcoder) run(ctx context.Context, args []string) error {
	if err := os.MkdirAll(t.outDir, 0o755); err != nil {
		return fmt.Errorf("prepare output dir: %w", err)
	}

	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var stderrLines []string
	err := t.exec.Run(runCtx, t.binary, args, func(line string) {
		stderrLines = append(stderrLines, line)
	})
	if err != nil {
		if len(stderrLines) > 0 {
			return fmt.Errorf("%s: %w", strings.Join(lastLines(stderrLines, 5), "; "), err)
		}
		return err
	}
	return nil
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func loudnormFilter(targetLUFS float64) string {
	return fmt.Sprintf("loudnorm=I=%.1f:TP=-1.5:LRA=11", targetLUFS)
}

func lastLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
