// Package concat joins transcoded intermediates into a single output
// container (C5). Batch mode stream-copies via ffmpeg's concat demuxer;
// incremental mode folds intermediates one at a time to cap memory usage
// when the intermediate count is large.
package concat
