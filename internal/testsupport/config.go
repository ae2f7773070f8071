package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"wordreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DBPath = filepath.Join(base, "catalog.db")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.TempDir = filepath.Join(base, "scratch")
	cfgVal.HTTP.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}

	return builder.cfg
}

// WithAuphonicToken sets the audio enhancement API token on the test config.
func WithAuphonicToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enhance.APIToken = token
	}
}

// WithFetchBinary overrides the fetcher's subprocess binary, typically to
// point at a stub for tests.
func WithFetchBinary(binary string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fetch.Binary = binary
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default wordreel external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

// WithFakeMediaTools installs yt-dlp/ffmpeg/ffprobe stand-ins that produce
// usable (if meaningless) output instead of merely exiting 0, so pipeline
// tests that exercise the real subprocess wrappers end to end see files and
// durations rather than missing-file errors.
func WithFakeMediaTools() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "fakebin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir fake media bin dir: %v", err)
		}

		writeScript(b.t, filepath.Join(binDir, "yt-dlp"), fakeYtDlpScript)
		writeScript(b.t, filepath.Join(binDir, "ffmpeg"), fakeFfmpegScript)
		writeScript(b.t, filepath.Join(binDir, "ffprobe"), fakeFfprobeScript)

		b.cfg.Fetch.Binary = filepath.Join(binDir, "yt-dlp")
		b.cfg.Transcode.Binary = filepath.Join(binDir, "ffmpeg")
		b.cfg.Transcode.ProbeBinary = filepath.Join(binDir, "ffprobe")
	}
}

const fakeYtDlpScript = `#!/bin/sh
dest=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then
    dest="$arg"
  fi
  prev="$arg"
done
if [ -n "$dest" ]; then
  printf 'fake-source-media' > "$dest"
fi
`

const fakeFfmpegScript = `#!/bin/sh
dest=""
for arg in "$@"; do
  dest="$arg"
done
printf 'fake-encoded-media' > "$dest"
`

const fakeFfprobeScript = `#!/bin/sh
printf '{"format":{"duration":"1.500000"}}'
`

func writeScript(t testing.TB, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("write fake media tool %s: %v", path, err)
	}
}
