package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wordreel/internal/config"
	"wordreel/internal/logging"
)

// AuphonicAPI is the subset of Client used by Enhancer, factored out so
// tests can substitute a stub without performing real HTTP calls.
type AuphonicAPI interface {
	CreateProduction(ctx context.Context, inputFile string) (string, error)
	StartProduction(ctx context.Context, productionUUID string) error
	GetStatus(ctx context.Context, productionUUID string) (ProductionStatus, error)
	Download(ctx context.Context, status ProductionStatus, destPath string) error
}

var _ AuphonicAPI = (*Client)(nil)

// Option configures an Enhancer.
type Option func(*Enhancer)

// WithExecutor injects a custom subprocess executor, primarily for tests.
func WithExecutor(e Executor) Option {
	return func(en *Enhancer) {
		if e != nil {
			en.exec = e
		}
	}
}

// WithAPI injects a custom Auphonic API client, primarily for tests.
func WithAPI(api AuphonicAPI) Option {
	return func(en *Enhancer) {
		if api != nil {
			en.api = api
		}
	}
}

// WithPollInterval overrides the poll interval, primarily for tests.
func WithPollInterval(d time.Duration) Option {
	return func(en *Enhancer) {
		if d > 0 {
			en.pollInterval = d
		}
	}
}

// WithKeepOriginal overrides whether a backup copy of the original audio is
// retained alongside the enhanced output, letting a per-request choice take
// precedence over the configured default.
func WithKeepOriginal(keep bool) Option {
	return func(en *Enhancer) {
		en.keepOriginal = keep
	}
}

// Enhancer drives the audio enhancement round-trip for a finished output
// video. It never returns a fatal error: any failure is reported as a
// warning against the unmodified input path.
type Enhancer struct {
	binary          string
	keepOriginal    bool
	pollInterval    time.Duration
	maxPollAttempts int
	workDir         string
	exec            Executor
	api             AuphonicAPI
	logger          *slog.Logger
}

// New constructs an Enhancer from configuration. It always returns a non-nil
// Enhancer; when no API token is configured, or the API client cannot be
// built, the Enhancer has no API client and Enhance leaves videos untouched.
func New(cfg *config.Config, workDir string, logger *slog.Logger, opts ...Option) *Enhancer {
	if logger == nil {
		logger = logging.NewNop()
	}
	var api AuphonicAPI
	if strings.TrimSpace(cfg.Enhance.APIToken) != "" {
		client, err := NewAPIClient(Config{
			APIToken: cfg.Enhance.APIToken,
			BaseURL:  cfg.Enhance.APIURL,
		})
		if err == nil {
			api = client
		}
	}
	en := &Enhancer{
		binary:          cfg.Transcode.Binary,
		keepOriginal:    cfg.Enhance.KeepOriginalAudio,
		pollInterval:    time.Duration(cfg.Enhance.PollIntervalSecs) * time.Second,
		maxPollAttempts: cfg.Enhance.MaxPollAttempts,
		workDir:         workDir,
		exec:            commandExecutor{},
		api:             api,
		logger:          logger.With(logging.String(logging.FieldComponent, "enhance")),
	}
	for _, opt := range opts {
		opt(en)
	}
	return en
}

// Result reports the outcome of an enhancement attempt. VideoPath is always
// populated: the enhanced file on success, or the original unmodified path
// when enhancement is skipped or fails.
type Result struct {
	VideoPath string
	Enhanced  bool
	Warning   string
}

// Enhance runs the full enhancement round-trip against videoPath, muxing
// the result back in place. Enabled requires a configured API client; when
// disabled, the original video is returned unchanged with no warning, and
// when any step fails, the original video is returned unchanged along with
// a warning describing why.
func (en *Enhancer) Enhance(ctx context.Context, videoPath string) Result {
	if en == nil || en.api == nil {
		return Result{VideoPath: videoPath}
	}

	enhancedAudio, err := en.roundTrip(ctx, videoPath)
	if err != nil {
		en.logger.Warn("audio enhancement failed, keeping original audio", logging.String("error", err.Error()))
		return Result{VideoPath: videoPath, Warning: err.Error()}
	}
	defer os.Remove(enhancedAudio)

	if en.keepOriginal {
		original := originalAudioBackupPath(videoPath)
		if err := copyFile(videoPath, original); err != nil {
			en.logger.Warn("could not retain original audio copy", logging.String("error", err.Error()))
		}
	}

	muxed := filepath.Join(en.workDir, "enhanced-"+filepath.Base(videoPath))
	if err := en.muxAudio(ctx, videoPath, enhancedAudio, muxed); err != nil {
		en.logger.Warn("audio mux-back failed, keeping original audio", logging.String("error", err.Error()))
		return Result{VideoPath: videoPath, Warning: err.Error()}
	}
	if err := os.Rename(muxed, videoPath); err != nil {
		en.logger.Warn("could not replace video with enhanced audio", logging.String("error", err.Error()))
		return Result{VideoPath: videoPath, Warning: err.Error()}
	}

	return Result{VideoPath: videoPath, Enhanced: true}
}

func (en *Enhancer) roundTrip(ctx context.Context, videoPath string) (string, error) {
	if err := os.MkdirAll(en.workDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare enhance work dir: %w", err)
	}

	extractedAudio := filepath.Join(en.workDir, "extracted.mp3")
	if err := en.extractAudio(ctx, videoPath, extractedAudio); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	defer os.Remove(extractedAudio)

	productionUUID, err := en.api.CreateProduction(ctx, extractedAudio)
	if err != nil {
		return "", fmt.Errorf("create production: %w", err)
	}
	if err := en.api.StartProduction(ctx, productionUUID); err != nil {
		return "", fmt.Errorf("start production: %w", err)
	}

	status, err := en.poll(ctx, productionUUID)
	if err != nil {
		return "", err
	}

	enhancedAudio := filepath.Join(en.workDir, "enhanced.mp3")
	if err := en.api.Download(ctx, status, enhancedAudio); err != nil {
		return "", fmt.Errorf("download result: %w", err)
	}
	return enhancedAudio, nil
}

func (en *Enhancer) poll(ctx context.Context, productionUUID string) (ProductionStatus, error) {
	for attempt := 0; attempt < en.maxPollAttempts; attempt++ {
		status, err := en.api.GetStatus(ctx, productionUUID)
		if err != nil {
			return ProductionStatus{}, fmt.Errorf("poll status: %w", err)
		}
		if status.Status == StatusError {
			return ProductionStatus{}, fmt.Errorf("production failed: %s", status.ErrorMessage)
		}
		if status.Status == StatusDone {
			return status, nil
		}
		if err := sleepWithContext(ctx, en.pollInterval); err != nil {
			return ProductionStatus{}, fmt.Errorf("cancelled while polling: %w", err)
		}
	}
	return ProductionStatus{}, fmt.Errorf("production timed out after %d attempts", en.maxPollAttempts)
}

func (en *Enhancer) extractAudio(ctx context.Context, videoPath, destPath string) error {
	args := []string{"-y", "-i", videoPath, "-vn", "-acodec", "libmp3lame", "-q:a", "2", destPath}
	return en.run(ctx, args)
}

func (en *Enhancer) muxAudio(ctx context.Context, videoPath, audioPath, destPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-shortest",
		destPath,
	}
	return en.run(ctx, args)
}

func (en *Enhancer) run(ctx context.Context, args []string) error {
	var stderrLines []string
	err := en.exec.Run(ctx, en.binary, args, func(line string) {
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

func originalAudioBackupPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + "_original" + ext
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
