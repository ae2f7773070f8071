package config

const (
	defaultDBPath              = "~/.local/share/wordreel/catalog.db"
	defaultOutputDir           = "~/.local/share/wordreel/output"
	defaultFetchBinary         = "yt-dlp"
	defaultFetchMaxRetries     = 3
	defaultFetchAttemptTimeout = 60
	defaultFetchPaddingStart   = 0.15
	defaultFetchPaddingEnd     = 0.15
	defaultTranscodeBinary     = "ffmpeg"
	defaultProbeBinary         = "ffprobe"
	defaultTranscodeTimeout    = 120
	defaultLoudnessTargetLUFS  = -16
	defaultPlaceholderDuration = 1.0
	defaultConcatIncremental   = "auto"
	defaultEnhanceAPIURL       = "https://auphonic.com/api"
	defaultEnhancePollInterval = 5
	defaultEnhanceMaxAttempts  = 120
	defaultFetchWorkers        = 3
	defaultProcessingWorkers   = 4
	defaultHTTPBind            = "127.0.0.1:8080"
	defaultHTTPReadHeader      = 5
	defaultHTTPRead            = 15
	defaultHTTPWrite           = 600
	defaultHTTPIdle            = 120
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DBPath:    defaultDBPath,
			OutputDir: defaultOutputDir,
			TempDir:   defaultTempDir(),
		},
		Fetch: Fetch{
			Binary:              defaultFetchBinary,
			MaxRetries:          defaultFetchMaxRetries,
			AttemptTimeoutSecs:  defaultFetchAttemptTimeout,
			PaddingStartSeconds: defaultFetchPaddingStart,
			PaddingEndSeconds:   defaultFetchPaddingEnd,
		},
		Transcode: Transcode{
			Binary:              defaultTranscodeBinary,
			ProbeBinary:         defaultProbeBinary,
			TimeoutSeconds:      defaultTranscodeTimeout,
			LoudnessNormalize:   true,
			LoudnessTargetLUFS:  defaultLoudnessTargetLUFS,
			PlaceholderDuration: defaultPlaceholderDuration,
		},
		Concat: Concat{
			Incremental: defaultConcatIncremental,
		},
		Enhance: Enhance{
			APIURL:           defaultEnhanceAPIURL,
			PollIntervalSecs: defaultEnhancePollInterval,
			MaxPollAttempts:  defaultEnhanceMaxAttempts,
		},
		Pipeline: Pipeline{
			FetchWorkers:        defaultFetchWorkers,
			ProcessingWorkers:   defaultProcessingWorkers,
			CleanupTempFiles:    true,
			VerifyEncoderOnInit: true,
		},
		HTTP: HTTP{
			Bind:              defaultHTTPBind,
			ReadHeaderTimeout: defaultHTTPReadHeader,
			ReadTimeout:       defaultHTTPRead,
			WriteTimeout:      defaultHTTPWrite,
			IdleTimeout:       defaultHTTPIdle,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
