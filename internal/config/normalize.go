package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeTranscode()
	c.normalizeConcat()
	c.normalizeEnhance()
	c.normalizePipeline()
	c.normalizeHTTP()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DBPath) == "" {
		c.Paths.DBPath = defaultDBPath
	}
	if c.Paths.DBPath, err = expandPath(c.Paths.DBPath); err != nil {
		return fmt.Errorf("paths.db_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	c.Fetch.Binary = strings.TrimSpace(c.Fetch.Binary)
	if c.Fetch.Binary == "" {
		c.Fetch.Binary = defaultFetchBinary
	}
	c.Fetch.CookiesFromBrowser = strings.ToLower(strings.TrimSpace(c.Fetch.CookiesFromBrowser))
	c.Fetch.CookieFile = strings.TrimSpace(c.Fetch.CookieFile)
	if c.Fetch.MaxRetries <= 0 {
		c.Fetch.MaxRetries = defaultFetchMaxRetries
	}
	if c.Fetch.AttemptTimeoutSecs <= 0 {
		c.Fetch.AttemptTimeoutSecs = defaultFetchAttemptTimeout
	}
	if c.Fetch.PaddingStartSeconds < 0 {
		c.Fetch.PaddingStartSeconds = defaultFetchPaddingStart
	}
	if c.Fetch.PaddingEndSeconds < 0 {
		c.Fetch.PaddingEndSeconds = defaultFetchPaddingEnd
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.Binary = strings.TrimSpace(c.Transcode.Binary)
	if c.Transcode.Binary == "" {
		c.Transcode.Binary = defaultTranscodeBinary
	}
	c.Transcode.ProbeBinary = strings.TrimSpace(c.Transcode.ProbeBinary)
	if c.Transcode.ProbeBinary == "" {
		c.Transcode.ProbeBinary = defaultProbeBinary
	}
	if c.Transcode.TimeoutSeconds <= 0 {
		c.Transcode.TimeoutSeconds = defaultTranscodeTimeout
	}
	if c.Transcode.LoudnessTargetLUFS == 0 {
		c.Transcode.LoudnessTargetLUFS = defaultLoudnessTargetLUFS
	}
	if c.Transcode.PlaceholderDuration <= 0 {
		c.Transcode.PlaceholderDuration = defaultPlaceholderDuration
	}
}

func (c *Config) normalizeConcat() {
	c.Concat.Incremental = strings.ToLower(strings.TrimSpace(c.Concat.Incremental))
	switch c.Concat.Incremental {
	case "auto", "true", "false":
	default:
		c.Concat.Incremental = defaultConcatIncremental
	}
}

func (c *Config) normalizeEnhance() {
	c.Enhance.APIToken = strings.TrimSpace(c.Enhance.APIToken)
	c.Enhance.APIURL = strings.TrimSpace(c.Enhance.APIURL)
	if c.Enhance.APIURL == "" {
		c.Enhance.APIURL = defaultEnhanceAPIURL
	}
	if c.Enhance.PollIntervalSecs <= 0 {
		c.Enhance.PollIntervalSecs = defaultEnhancePollInterval
	}
	if c.Enhance.MaxPollAttempts <= 0 {
		c.Enhance.MaxPollAttempts = defaultEnhanceMaxAttempts
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.FetchWorkers <= 0 {
		c.Pipeline.FetchWorkers = defaultFetchWorkers
	}
	if c.Pipeline.ProcessingWorkers <= 0 {
		c.Pipeline.ProcessingWorkers = defaultProcessingWorkers
	}
}

func (c *Config) normalizeHTTP() {
	c.HTTP.Bind = strings.TrimSpace(c.HTTP.Bind)
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = defaultHTTPBind
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		c.HTTP.ReadHeaderTimeout = defaultHTTPReadHeader
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = defaultHTTPRead
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = defaultHTTPWrite
	}
	if c.HTTP.IdleTimeout <= 0 {
		c.HTTP.IdleTimeout = defaultHTTPIdle
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
