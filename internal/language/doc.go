// Package language provides unified language code normalization and mapping.
//
// All language-related conversions (ISO 639-1, ISO 639-2, display names,
// tag extraction) are consolidated here to avoid duplication across the
// catalog's preferred-language lookup and the pipeline's request-language
// normalization.
package language
