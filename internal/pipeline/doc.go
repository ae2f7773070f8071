// Package pipeline drives the plan -> fetch -> transcode -> concat ->
// (enhance) sequence for one composition request (C7). Fetch and transcode
// run through bounded worker pools; intermediates are emitted to the
// concatenator in strict plan order through a position-indexed result
// buffer, regardless of which worker finishes first.
package pipeline
