package deps

import (
	"os"
	"path/filepath"
	"testing"

	"wordreel/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
}

func TestCheckBinariesUnconfiguredCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Unset", Optional: true}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatalf("expected unconfigured command to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("detail = %q, want %q", results[0].Detail, "command not configured")
	}
}

func TestRequirementsIncludesAuphonicOnlyWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Fetch.Binary = "yt-dlp"
	cfg.Transcode.Binary = "ffmpeg"
	cfg.Transcode.ProbeBinary = "ffprobe"

	withoutToken := Requirements(&cfg)
	found := false
	for _, req := range withoutToken {
		if req.Name == "Auphonic" {
			found = true
			if !req.Optional {
				t.Error("expected Auphonic requirement to be optional")
			}
		}
	}
	if !found {
		t.Fatal("expected an Auphonic requirement when no api token is configured")
	}

	cfg.Enhance.APIToken = "secret"
	withToken := Requirements(&cfg)
	for _, req := range withToken {
		if req.Name == "Auphonic" {
			t.Fatal("did not expect an Auphonic requirement once an api token is configured")
		}
	}
}

func TestRequirementsNamesCoreBinaries(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)

	names := map[string]bool{}
	for _, req := range reqs {
		names[req.Name] = true
	}
	for _, want := range []string{"yt-dlp", "FFmpeg", "FFprobe"} {
		if !names[want] {
			t.Errorf("expected a requirement named %q, got %v", want, reqs)
		}
	}
}
