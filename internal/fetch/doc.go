// Package fetch downloads a bounded time range of a source video (C3) using
// a yt-dlp-style subprocess, honoring cookie-based authentication and a
// bounded exponential backoff retry policy. Results are cached on disk keyed
// by (videoId, start, end) so repeated picks across a job, or across jobs,
// avoid redundant downloads.
package fetch
