// Package enhance implements the audio enhancement round-trip against the
// Auphonic API (C6): upload the output's audio, apply a fixed processing
// preset, poll until done, download the result, and mux it back over the
// original audio track. Any step failing returns the original video
// unchanged with a warning; this stage never fails a job.
package enhance
