package fetch

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
	"wordreel/internal/pipeline/errs"
)

// Range describes the time window to download from a source video, before
// padding and clamping are applied.
type Range struct {
	VideoID string
	Start   float64
	End     float64
	// KnownDuration, when > 0, clamps the padded range to [0, KnownDuration).
	KnownDuration float64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithExecutor injects a custom subprocess executor, primarily for tests.
func WithExecutor(e Executor) Option {
	return func(f *Fetcher) {
		if e != nil {
			f.exec = e
		}
	}
}

// WithBackoffBase overrides the base retry backoff duration, primarily for
// tests that would otherwise wait real wall-clock seconds between attempts.
func WithBackoffBase(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.backoffBase = d
		}
	}
}

// Fetcher downloads bounded time ranges of source videos via a yt-dlp-style
// subprocess, with cookie authentication, retry-with-backoff, and a disk
// cache keyed by (videoID, start, end).
type Fetcher struct {
	binary       string
	cookieMode   string // "" | "browser" | "file"
	browser      string
	cookieFile   string
	maxRetries   int
	attemptLimit int // seconds
	cacheDir     string
	exec         Executor
	logger       *slog.Logger
	backoffBase  time.Duration
}

// New constructs a Fetcher from configuration. cacheDir is typically a
// subdirectory of the configured temp directory.
func New(cfg *config.Config, cacheDir string, logger *slog.Logger, opts ...Option) *Fetcher {
	mode := ""
	if strings.TrimSpace(cfg.Fetch.CookiesFromBrowser) != "" {
		mode = "browser"
	} else if strings.TrimSpace(cfg.Fetch.CookieFile) != "" {
		mode = "file"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	f := &Fetcher{
		binary:       cfg.Fetch.Binary,
		cookieMode:   mode,
		browser:      cfg.Fetch.CookiesFromBrowser,
		cookieFile:   cfg.Fetch.CookieFile,
		maxRetries:   cfg.Fetch.MaxRetries,
		attemptLimit: cfg.Fetch.AttemptTimeoutSecs,
		cacheDir:     cacheDir,
		exec:         commandExecutor{},
		logger:       logger.With(logging.String(logging.FieldComponent, "fetch")),
		backoffBase:  time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the requested range, plus symmetric padding, and returns
// the local path to the resulting media file. On exhaustion of retries it
// returns an error wrapped with errs.ErrFetchTransient or
// errs.ErrFetchPermanent; it never panics or aborts the caller's job.
func (f *Fetcher) Fetch(ctx context.Context, r Range, paddingStart, paddingEnd float64) (string, error) {
	start := r.Start - paddingStart
	end := r.End + paddingEnd
	if start < 0 {
		start = 0
	}
	if r.KnownDuration > 0 && end > r.KnownDuration {
		end = r.KnownDuration
	}
	if end <= start {
		end = start + 0.1
	}

	if path, ok := lookupCache(f.cacheDir, r.VideoID, start, end); ok {
		f.logger.Debug("fetch cache hit", logging.String("video_id", r.VideoID))
		return path, nil
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", errs.Wrap(errs.ErrFetchTransient, "fetch", "prepare cache dir", "failed to create fetch cache directory", err)
	}

	dest := cachePath(f.cacheDir, r.VideoID, start, end)
	tmp := dest + ".part"

	var lastErr error
	attempts := f.maxRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		err := f.download(ctx, r.VideoID, start, end, tmp)
		if err == nil {
			if err := os.Rename(tmp, dest); err != nil {
				return "", errs.Wrap(errs.ErrFetchTransient, "fetch", "finalize download", "failed to move downloaded file into cache", err)
			}
			return dest, nil
		}
		lastErr = err

		if isPermanent(err) {
			_ = os.Remove(tmp)
			return "", errs.Wrap(errs.ErrFetchPermanent, "fetch", "download", "source unavailable", err)
		}
		if !isTransient(err) || attempt == attempts {
			break
		}

		backoff := backoffSchedule(attempt, f.backoffBase)
		f.logger.Warn("fetch attempt failed, retrying",
			logging.String("video_id", r.VideoID),
			logging.Int("fetch_attempt", attempt),
			logging.String("fetch_backoff", backoff.String()),
			logging.Error(err),
		)
		if sleepErr := sleepWithContext(ctx, backoff); sleepErr != nil {
			return "", errs.Wrap(errs.ErrCancelled, "fetch", "backoff wait", "context cancelled during retry backoff", sleepErr)
		}
	}

	_ = os.Remove(tmp)
	return "", errs.Wrap(errs.ErrFetchTransient, "fetch", "download", "retries exhausted", lastErr)
}

func (f *Fetcher) download(ctx context.Context, videoID string, start, end float64, dest string) error {
	attemptCtx := ctx
	if f.attemptLimit > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(f.attemptLimit)*time.Second)
		defer cancel()
	}

	args := f.buildArgs(videoID, start, end, dest)

	var stderrLines []string
	err := f.exec.Run(attemptCtx, f.binary, args, func(line string) {
		stderrLines = append(stderrLines, line)
	})
	if err != nil {
		if len(stderrLines) > 0 {
			return fmt.Errorf("%s: %w", strings.Join(stderrLines, "; "), err)
		}
		return err
	}
	return nil
}

func (f *Fetcher) buildArgs(videoID string, start, end float64, dest string) []string {
	args := []string{
		"--no-playlist",
		"--force-overwrites",
		"--download-sections", fmt.Sprintf("*%.3f-%.3f", start, end),
		"--force-keyframes-at-cuts",
		"-o", dest,
	}
	switch f.cookieMode {
	case "browser":
		args = append(args, "--cookies-from-browser", f.browser)
	case "file":
		args = append(args, "--cookies", f.cookieFile)
	}
	args = append(args, sourceURL(videoID))
	return args
}

func sourceURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

// CacheDir returns the conventional fetch cache location under tempDir.
func CacheDir(tempDir string) string {
	return filepath.Join(tempDir, "fetch-cache")
}
