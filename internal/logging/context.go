package logging

import (
	"context"
	"log/slog"

	"wordreel/internal/pipeline/errs"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queue item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for worker lane names.
	FieldLane = "lane"
	// FieldPickIndex is the standardized structured logging key for the plan
	// index of the segment pick being processed.
	FieldPickIndex = "pick_index"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType is the standardized structured logging key classifying a
	// log record into a named event (e.g. "fetch_retry", "enhance_timeout").
	FieldEventType = "event_type"
	// FieldDecisionType is the standardized structured logging key identifying
	// which planning or selection decision a log record describes.
	FieldDecisionType = "decision_type"
	// FieldProgressStage is the standardized structured logging key for the
	// stage name reported by an enhancement job's progress callback.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent is the standardized structured logging key for the
	// completion percentage reported by an enhancement job's progress callback.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage is the standardized structured logging key for the
	// free-text status reported by an enhancement job's progress callback.
	FieldProgressMessage = "progress_message"
	// FieldProgressETA is the standardized structured logging key for the
	// estimated time remaining reported by an enhancement job's progress callback.
	FieldProgressETA = "progress_eta"
	// FieldErrorCode is the standardized structured logging key for a
	// catalog-stable error classification code.
	FieldErrorCode = "error_code"
	// FieldErrorHint is the standardized structured logging key for a
	// short human-readable remediation hint attached to a warning or error.
	FieldErrorHint = "error_hint"
	// FieldErrorDetailPath is the standardized structured logging key for the
	// path to an on-disk file holding the full detail behind a truncated error.
	FieldErrorDetailPath = "error_detail_path"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := errs.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldItemID, id))
	}
	if stage, ok := errs.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if idx, ok := errs.PickIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldPickIndex, idx))
	}
	if rid, ok := errs.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
