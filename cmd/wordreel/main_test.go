package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"wordreel/internal/catalog"
	"wordreel/internal/config"
	"wordreel/internal/testsupport"
)

func installFakeMediaBinaries(t *testing.T) {
	t.Helper()
	binDir := t.TempDir()

	write := func(name, contents string) {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte(contents), 0o755); err != nil {
			t.Fatalf("write fake %s: %v", name, err)
		}
	}
	write("yt-dlp", "#!/bin/sh\ndest=\"\"\nprev=\"\"\nfor arg in \"$@\"; do\n  if [ \"$prev\" = \"-o\" ]; then dest=\"$arg\"; fi\n  prev=\"$arg\"\ndone\n[ -n \"$dest\" ] && printf fake > \"$dest\"\n")
	write("ffmpeg", "#!/bin/sh\ndest=\"\"\nfor arg in \"$@\"; do dest=\"$arg\"; done\nprintf fake > \"$dest\"\n")
	write("ffprobe", "#!/bin/sh\nprintf '{\"format\":{\"duration\":\"1.000000\"}}'\n")

	oldPath := os.Getenv("PATH")
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath)
}

func runCLI(t *testing.T, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerateVideoEndToEnd(t *testing.T) {
	installFakeMediaBinaries(t)

	home := t.TempDir()
	t.Setenv("HOME", home)

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	seedCfg := config.Default()
	seedCfg.Paths.DBPath = dbPath
	store, err := catalog.Open(&seedCfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	testsupport.SeedVideo(t, store, "vid1", "chan1",
		[][3]any{{"hello", 0.0, 1.0}},
		map[string][][2]float64{"hello": {{0.0, 1.0}}},
	)
	store.Close()

	outputDir := t.TempDir()

	_, _, err = runCLI(t, []string{
		"--text", "hello",
		"--database", dbPath,
		"--output-dir", outputDir,
		"--max-phrase-length", "1",
	})
	if err != nil {
		t.Fatalf("generate command failed: %v", err)
	}

	entries, readErr := os.ReadDir(outputDir)
	if readErr != nil {
		t.Fatalf("read output dir: %v", readErr)
	}
	if len(entries) == 0 {
		t.Fatal("expected a video file in the output directory")
	}
}

func TestGenerateVideoWritesDebugLog(t *testing.T) {
	installFakeMediaBinaries(t)

	home := t.TempDir()
	t.Setenv("HOME", home)

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	seedCfg := config.Default()
	seedCfg.Paths.DBPath = dbPath
	store, err := catalog.Open(&seedCfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	testsupport.SeedVideo(t, store, "vid1", "chan1",
		[][3]any{{"hello", 0.0, 1.0}},
		map[string][][2]float64{"hello": {{0.0, 1.0}}},
	)
	store.Close()

	outputDir := t.TempDir()

	_, _, err = runCLI(t, []string{
		"--text", "hello",
		"--database", dbPath,
		"--output-dir", outputDir,
		"--max-phrase-length", "1",
		"--debug-log",
	})
	if err != nil {
		t.Fatalf("generate command failed: %v", err)
	}

	debugDir := filepath.Join(outputDir, "logs", "debug")
	entries, readErr := os.ReadDir(debugDir)
	if readErr != nil {
		t.Fatalf("read debug log dir: %v", readErr)
	}
	if len(entries) == 0 {
		t.Fatal("expected a debug log file")
	}
	contents, readErr := os.ReadFile(filepath.Join(debugDir, entries[0].Name()))
	if readErr != nil {
		t.Fatalf("read debug log: %v", readErr)
	}
	if !bytes.Contains(contents, []byte(`"session_id"`)) {
		t.Fatalf("expected debug log to carry session_id, got: %s", contents)
	}
}

func TestGenerateVideoRequiresText(t *testing.T) {
	_, _, err := runCLI(t, []string{})
	if err == nil {
		t.Fatal("expected an error when --text is omitted")
	}
	if got := exitCodeFor(err); got != exitBadArguments {
		t.Errorf("exitCodeFor = %d, want %d", got, exitBadArguments)
	}
}
