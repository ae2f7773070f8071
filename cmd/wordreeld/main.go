// Command wordreeld runs the wordreel Composition Service as a
// long-running daemon: catalog, pipeline orchestrator, and HTTP API bound
// together behind a single-instance lock.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"wordreel/internal/catalog"
	"wordreel/internal/config"
	"wordreel/internal/daemon"
	"wordreel/internal/deps"
	"wordreel/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logHub := logging.NewStreamHub(4096)
	logger, err := logging.NewFromConfigWithStream(cfg, logHub)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if cfg.Pipeline.VerifyEncoderOnInit {
		for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
			if status.Available || status.Optional {
				continue
			}
			logger.Warn("dependency unavailable",
				logging.String("dependency", status.Name),
				logging.String("detail", status.Detail),
			)
		}
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		log.Fatalf("open catalog: %v", err)
	}

	d, err := daemon.New(cfg, store, logger, logHub)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		log.Fatalf("daemon start: %v", err)
	}

	logger.Info("wordreeld shutting down")
}
