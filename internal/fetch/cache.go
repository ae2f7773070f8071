package fetch

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// cacheKey deterministically names the cached file for one (videoID, start,
// end) fetch. Fetch passes the padded, clamped range, so two requests share
// a cache entry only when their padded ranges match to the millisecond.
func cacheKey(videoID string, start, end float64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%.3f|%.3f", videoID, start, end)))
	return hex.EncodeToString(sum[:])
}

func cachePath(cacheDir, videoID string, start, end float64) string {
	return filepath.Join(cacheDir, cacheKey(videoID, start, end)+".mp4")
}

// lookupCache returns the cached path if it exists and is non-empty.
func lookupCache(cacheDir, videoID string, start, end float64) (string, bool) {
	path := cachePath(cacheDir, videoID, start, end)
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", false
	}
	return path, true
}
