package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories and the catalog location.
type Paths struct {
	DBPath    string `toml:"db_path"`
	OutputDir string `toml:"output_dir"`
	TempDir   string `toml:"temp_dir"`
}

// Fetch contains configuration for the Fetcher (C3).
type Fetch struct {
	Binary              string `toml:"binary"`
	CookiesFromBrowser  string `toml:"cookies_from_browser"`
	CookieFile          string `toml:"cookie_file"`
	MaxRetries          int    `toml:"max_retries"`
	AttemptTimeoutSecs  int    `toml:"attempt_timeout_seconds"`
	PaddingStartSeconds float64 `toml:"padding_start_seconds"`
	PaddingEndSeconds   float64 `toml:"padding_end_seconds"`
}

// Transcode contains configuration for the Transcoder (C4).
type Transcode struct {
	Binary               string `toml:"binary"`
	ProbeBinary          string `toml:"probe_binary"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	LoudnessNormalize    bool   `toml:"loudness_normalize"`
	LoudnessTargetLUFS   float64 `toml:"loudness_target_lufs"`
	PlaceholderDuration  float64 `toml:"placeholder_duration_seconds"`
}

// Concat contains configuration for the Concatenator (C5).
type Concat struct {
	// Incremental is "auto" (incremental when more than 50 intermediates),
	// "true", or "false".
	Incremental string `toml:"incremental"`
}

// Enhance contains configuration for the Audio Enhancer Client (C6).
type Enhance struct {
	APIToken          string `toml:"api_token"`
	APIURL            string `toml:"api_url"`
	PollIntervalSecs  int    `toml:"poll_interval_seconds"`
	MaxPollAttempts   int    `toml:"max_poll_attempts"`
	KeepOriginalAudio bool   `toml:"keep_original_audio"`
}

// Pipeline contains orchestrator tuning (C7).
type Pipeline struct {
	FetchWorkers        int  `toml:"fetch_workers"`
	ProcessingWorkers   int  `toml:"processing_workers"`
	CleanupTempFiles    bool `toml:"cleanup_temp_files"`
	VerifyEncoderOnInit bool `toml:"verify_encoder_on_init"`
	// FailOnAnyTranscodeErr governs how a single pick's fetch/transcode
	// failure is handled: by default the job degrades (drops the pick or
	// substitutes a placeholder), but with this set any such failure aborts
	// the whole job. It has no bearing on job cancellation, which always
	// aborts the job regardless of this setting.
	FailOnAnyTranscodeErr bool `toml:"fail_on_any_transcode_error"`
}

// HTTP contains configuration for the Composition Service (C8).
type HTTP struct {
	Bind              string `toml:"bind"`
	ReadHeaderTimeout int    `toml:"read_header_timeout_seconds"`
	ReadTimeout       int    `toml:"read_timeout_seconds"`
	WriteTimeout      int    `toml:"write_timeout_seconds"`
	IdleTimeout       int    `toml:"idle_timeout_seconds"`
	// CORSAllowedOrigins narrows cross-origin access to this explicit list.
	// Empty means permissive (any origin), the default for local development.
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for wordreel.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Fetch     Fetch     `toml:"fetch"`
	Transcode Transcode `toml:"transcode"`
	Concat    Concat    `toml:"concat"`
	Enhance   Enhance   `toml:"enhance"`
	Pipeline  Pipeline  `toml:"pipeline"`
	HTTP      HTTP      `toml:"http"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/wordreel/config.toml")
}

// Load locates and parses a configuration file, applies environment variable
// overrides, then normalizes and validates the result. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/wordreel/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("wordreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// applyEnvOverrides layers the environment variables named in the external
// interfaces section over file configuration.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("DB_PATH"); ok && strings.TrimSpace(v) != "" {
		c.Paths.DBPath = v
	}
	if v, ok := os.LookupEnv("OUTPUT_DIR"); ok && strings.TrimSpace(v) != "" {
		c.Paths.OutputDir = v
	}
	if v, ok := os.LookupEnv("TEMP_DIR"); ok && strings.TrimSpace(v) != "" {
		c.Paths.TempDir = v
	}
	if v, ok := os.LookupEnv("COOKIES_FROM_BROWSER"); ok {
		c.Fetch.CookiesFromBrowser = v
	}
	if v, ok := os.LookupEnv("AUPHONIC_API_TOKEN"); ok {
		c.Enhance.APIToken = v
	}
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		c.HTTP.CORSAllowedOrigins = splitAndTrim(v)
	}
}

// splitAndTrim splits a comma-separated list and drops empty entries left by
// stray commas or surrounding whitespace.
func splitAndTrim(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// EnsureDirectories creates the output and temp directories if absent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository's path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultTempDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "wordreel", "scratch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/wordreel/scratch"
	}
	return filepath.Join(home, ".cache", "wordreel", "scratch")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
