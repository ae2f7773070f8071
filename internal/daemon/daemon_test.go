package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wordreel/internal/daemon"
	"wordreel/internal/logging"
	"wordreel/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	store := testsupport.MustOpenCatalog(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger, logging.NewStreamHub(64))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan error, 1)
	go func() {
		started <- d.Start(ctx)
	}()

	// give Start a moment to acquire the lock and bind the listener before
	// attempting a concurrent second start.
	time.Sleep(50 * time.Millisecond)

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected concurrent second start to fail")
	}

	cancel()

	select {
	case err := <-started:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestDaemonStartPrunesExpiredEventJournalsButKeepsItsOwn(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	cfg.Logging.RetentionDays = 1
	store := testsupport.MustOpenCatalog(t, cfg)
	logger := logging.NewNop()

	logDir := filepath.Join(cfg.Paths.OutputDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	stalePath := filepath.Join(logDir, "wordreel-20200101T000000.000Z.events.jsonl")
	if err := os.WriteFile(stalePath, []byte(`{"sequence":1,"message":"old"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write stale journal: %v", err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stalePath, stale, stale); err != nil {
		t.Fatalf("backdate stale journal: %v", err)
	}

	hub := logging.NewStreamHub(64)
	d, err := daemon.New(cfg, store, logger, hub)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan error, 1)
	go func() { started <- d.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-started:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}

	if _, err := os.Stat(stalePath); !os.IsNotExist(err) {
		t.Fatalf("expected stale event journal to be pruned, stat err = %v", err)
	}

	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("read log dir: %v", err)
	}
	var keptCurrentJournal bool
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".events.jsonl") {
			keptCurrentJournal = true
		}
	}
	if !keptCurrentJournal {
		t.Fatal("expected this run's own event journal to survive pruning")
	}
}

func TestDaemonNewRejectsMissingDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected an error when config, store, and logger are all nil")
	}
}
