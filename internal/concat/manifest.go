package concat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// writeManifest writes an ffmpeg concat-demuxer manifest listing paths in
// order, and returns the manifest's path.
func writeManifest(dir string, paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(escapeManifestPath(p))
		b.WriteString("'\n")
	}
	manifestPath := filepath.Join(dir, fmt.Sprintf("concat-manifest-%s.txt", uuid.NewString()))
	if err := os.WriteFile(manifestPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat manifest: %w", err)
	}
	return manifestPath, nil
}

// escapeManifestPath escapes single quotes the way the concat demuxer's
// quoted-string syntax requires.
func escapeManifestPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
