// Package catalog implements the clip catalog (C1): a read-only SQLite store
// of per-word clips, per-video transcripts, and a 2-5-word phrase index. The
// catalog is populated by an out-of-scope ingester; this package only reads
// it, applying the selection policy described in lookup.go when more than one
// candidate matches a query.
package catalog
