// Package errs classifies pipeline failures into the kinds named by the
// composition service's error handling design: bad requests, catalog misses,
// transient and permanent fetch errors, transcode/concat/enhance failures, and
// cancellation. Stage code wraps underlying errors with one of the exported
// sentinels so the orchestrator can decide retry, substitution, or job
// failure without inspecting error strings.
package errs
