package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("video", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "video:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("status", statusOK, "success", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderStatusLineWithoutMessage(t *testing.T) {
	got := renderStatusLine("pick 1/3", statusInfo, "", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "pick 1/3:", "[INFO]")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestStatusKindLabel(t *testing.T) {
	cases := map[statusKind]string{
		statusInfo:  "INFO",
		statusOK:    "OK",
		statusWarn:  "WARN",
		statusError: "ERROR",
	}
	for kind, want := range cases {
		if got := statusKindLabel(kind); got != want {
			t.Errorf("statusKindLabel(%v) = %q, want %q", kind, got, want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenameOutputMovesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mp4")
	dst := filepath.Join(dir, "dest.mp4")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := renameOutput(src, dst); err != nil {
		t.Fatalf("renameOutput: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected source removed, stat err = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("dest contents = %q, want %q", data, "payload")
	}
}
