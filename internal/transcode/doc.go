// Package transcode encodes source clips and placeholder cards to the fixed
// intermediate media profile (C4) so that every intermediate produced by a
// job — regardless of source — shares an identical container, codec, pixel
// format, frame rate, and audio layout, which is the precondition for a
// stream-copy concatenation downstream.
package transcode
