package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wordreel/internal/catalog"
	"wordreel/internal/config"
	"wordreel/internal/deps"
	"wordreel/internal/logging"
	"wordreel/internal/pipeline"
	"wordreel/internal/pipeline/errs"
)

func newRootCommand() *cobra.Command {
	var (
		text            string
		lang            string
		databasePath    string
		outputPath      string
		outputDir       string
		verbose         bool
		debugLog        bool
		noNormalize     bool
		noCleanup       bool
		enhanceAudio    bool
		maxPhraseLength int
	)

	rootCmd := &cobra.Command{
		Use:           "wordreel",
		Short:         "Compose a video from an input sentence using a catalog of source videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(text) == "" {
				return errs.Wrap(errs.ErrBadRequest, "cli", "parse flags", "--text is required", nil)
			}
			return runGenerate(cmd.Context(), generateOptions{
				text:            text,
				lang:            lang,
				databasePath:    databasePath,
				outputPath:      outputPath,
				outputDir:       outputDir,
				verbose:         verbose,
				debugLog:        debugLog,
				noNormalize:     noNormalize,
				noCleanup:       noCleanup,
				enhanceAudio:    enhanceAudio,
				maxPhraseLength: maxPhraseLength,
			})
		},
	}

	rootCmd.Flags().StringVar(&text, "text", "", "Input sentence to compose into a video (required)")
	rootCmd.Flags().StringVar(&lang, "lang", "", "Preferred source-video language code (default en)")
	rootCmd.Flags().StringVar(&databasePath, "database", "", "Path to the clip catalog database (overrides config)")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "Exact path to write the finished video to (overrides --output-dir naming)")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to write the finished video into (overrides config)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.Flags().BoolVar(&debugLog, "debug-log", false, "Write a full JSON diagnostic log alongside console output")
	rootCmd.Flags().BoolVar(&noNormalize, "no-normalize", false, "Disable audio loudness normalization for this run")
	rootCmd.Flags().BoolVar(&noCleanup, "no-cleanup", false, "Keep the job's scratch directory after completion")
	rootCmd.Flags().BoolVar(&enhanceAudio, "enhance-audio", false, "Run the finished video's audio through enhancement")
	rootCmd.Flags().IntVar(&maxPhraseLength, "max-phrase-length", 0, "Maximum words per phrase lookup (1..50, default 10)")

	rootCmd.AddCommand(newLogsCommand())

	return rootCmd
}

type generateOptions struct {
	text            string
	lang            string
	databasePath    string
	outputPath      string
	outputDir       string
	verbose         bool
	debugLog        bool
	noNormalize     bool
	noCleanup       bool
	enhanceAudio    bool
	maxPhraseLength int
}

func runGenerate(ctx context.Context, opts generateOptions) error {
	cfg, _, _, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if opts.databasePath != "" {
		cfg.Paths.DBPath = opts.databasePath
	}
	if opts.outputDir != "" {
		cfg.Paths.OutputDir = opts.outputDir
	}
	if opts.noNormalize {
		cfg.Transcode.LoudnessNormalize = false
	}
	if opts.noCleanup {
		cfg.Pipeline.CleanupTempFiles = false
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.debugLog && cfg.Paths.OutputDir != "" {
		sessionID := uuid.NewString()
		debugDir := filepath.Join(cfg.Paths.OutputDir, "logs", "debug")
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return fmt.Errorf("create debug log directory: %w", err)
		}
		debugLogPath := filepath.Join(debugDir, fmt.Sprintf("wordreel-%s.log", sessionID))
		debugLogger, debugErr := logging.New(logging.Options{
			Level:            "debug",
			Format:           "json",
			OutputPaths:      []string{debugLogPath},
			ErrorOutputPaths: []string{debugLogPath},
			Development:      true,
			SessionID:        sessionID,
		})
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug log: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, debugLogger.Handler())
			logger.Info("diagnostic logging enabled",
				logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
				logging.String(logging.FieldSessionID, sessionID),
				logging.String("debug_log_path", debugLogPath),
			)
		}
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	orch := pipeline.New(cfg, store, logger)

	colorize := shouldColorize(stdout())
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		if status.Available || status.Optional {
			continue
		}
		fmt.Fprintln(stdout(), renderStatusLine(status.Name, statusWarn, status.Detail, colorize))
	}
	req := pipeline.Request{
		Text:            opts.text,
		Lang:            opts.lang,
		MaxPhraseLength: opts.maxPhraseLength,
		EnhanceAudio:    opts.enhanceAudio,
		Debug:           opts.verbose,
	}

	sampler := logging.NewProgressSampler(5)
	result, err := orch.Run(ctx, req, func(completed, total int) {
		percent := float64(completed) / float64(total) * 100
		if !sampler.ShouldLog(percent, "", "") {
			return
		}
		fmt.Fprintln(stdout(), renderStatusLine(fmt.Sprintf("pick %d/%d", completed, total), statusInfo, "", colorize))
	})
	if err != nil {
		return err
	}

	if opts.outputPath != "" && result.VideoPath != "" {
		if err := renameOutput(result.VideoPath, opts.outputPath); err == nil {
			result.VideoPath = opts.outputPath
		}
	}

	printResult(result, colorize)

	if result.Status == errs.StatusFailed {
		return errs.Wrap(errs.ErrConcatFailed, "cli", "generate", result.Message, nil)
	}
	return nil
}

func printResult(result pipeline.Result, colorize bool) {
	kind := statusOK
	if result.Status == errs.StatusPartialFailure {
		kind = statusWarn
	}
	if result.Status == errs.StatusFailed {
		kind = statusError
	}
	fmt.Println(renderStatusLine("status", kind, string(result.Status), colorize))
	fmt.Println(renderStatusLine("video", statusInfo, result.VideoPath, colorize))
	if result.OriginalVideoPath != "" {
		fmt.Println(renderStatusLine("original audio", statusInfo, result.OriginalVideoPath, colorize))
	}
	if len(result.MissingWords) > 0 {
		fmt.Println(renderStatusLine("missing words", statusWarn, strings.Join(result.MissingWords, ", "), colorize))
	}
	if result.Message != "" {
		fmt.Println(renderStatusLine("message", statusInfo, result.Message, colorize))
	}
	if len(result.WordTimings) > 0 {
		headers := []string{"Word", "Start", "End"}
		rows := make([][]string, 0, len(result.WordTimings))
		for _, t := range result.WordTimings {
			rows = append(rows, []string{t.Word, fmt.Sprintf("%.2f", t.Start), fmt.Sprintf("%.2f", t.End)})
		}
		fmt.Println(renderTable(headers, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
	}
}
