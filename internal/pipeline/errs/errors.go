package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the terminal state of a pipeline job.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

var (
	// ErrBadRequest marks malformed or invalid request input. No job is
	// created; the composition service responds 400.
	ErrBadRequest = errors.New("bad request")
	// ErrCatalogMiss marks a word or phrase with no candidate in the clip
	// catalog. Not fatal: the planner substitutes a placeholder.
	ErrCatalogMiss = errors.New("catalog miss")
	// ErrFetchTransient marks a retryable fetch failure (network, 5xx,
	// rate-limit).
	ErrFetchTransient = errors.New("fetch transient error")
	// ErrFetchPermanent marks a non-retryable fetch failure (404/410/403/
	// region-locked).
	ErrFetchPermanent = errors.New("fetch permanent error")
	// ErrTranscodeFailed marks an encoder failure on a single pick.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrConcatFailed marks an encoder failure joining intermediates. Fatal:
	// the job fails.
	ErrConcatFailed = errors.New("concat failed")
	// ErrEnhanceFailed marks an audio enhancement round-trip failure. Never
	// fatal: the job returns the pre-enhancement output with a warning.
	ErrEnhanceFailed = errors.New("enhance failed")
	// ErrCancelled marks a job that observed its cancellation flag.
	ErrCancelled = errors.New("job cancelled")
)

// Wrap builds an error that carries stage context while tagging it with the
// provided marker for later status classification. marker should be one of
// the exported sentinels above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrFetchTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// JobStatus maps a pick-level or job-level error to the terminal status the
// orchestrator should report when no further recovery is possible.
func JobStatus(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrCancelled):
		return StatusCancelled
	case errors.Is(err, ErrConcatFailed), errors.Is(err, ErrBadRequest):
		return StatusFailed
	default:
		return StatusPartialFailure
	}
}

// IsFatal reports whether err should abort the job outright rather than
// being recorded as a skipped pick or a warning.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConcatFailed) || errors.Is(err, ErrBadRequest) || errors.Is(err, ErrCancelled)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
