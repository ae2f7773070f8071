package transcode_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wordreel/internal/config"
	"wordreel/internal/transcode"
)

// capturingExecutor records every invocation's arguments and writes a marker
// file to the last argument (the destination path, by construction always
// last) on success.
type capturingExecutor struct {
	invocations [][]string
	err         error
}

func (c *capturingExecutor) Run(_ context.Context, _ string, args []string, onStdout func(string)) error {
	c.invocations = append(c.invocations, append([]string(nil), args...))
	if onStdout != nil {
		onStdout("frame=1 fps=30")
	}
	if c.err != nil {
		return c.err
	}
	if len(args) > 0 {
		_ = os.WriteFile(args[len(args)-1], []byte("mp4 bytes"), 0o644)
	}
	return nil
}

func newTestTranscoder(t *testing.T, exec *capturingExecutor) *transcode.Transcoder {
	t.Helper()
	cfg := config.Default()
	outDir := t.TempDir()
	return transcode.New(&cfg, outDir, nil, transcode.WithExecutor(exec))
}

func TestClipEncodesToFixedProfile(t *testing.T) {
	exec := &capturingExecutor{}
	tr := newTestTranscoder(t, exec)

	path, err := tr.Clip(context.Background(), "/videos/source.mp4", 10.0, 12.5, transcode.ClipOptions{})
	if err != nil {
		t.Fatalf("Clip: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected intermediate file at %s: %v", path, statErr)
	}
	if filepath.Ext(path) != ".mp4" {
		t.Fatalf("expected mp4 container, got %s", path)
	}

	args := exec.invocations[0]
	wantFixed := map[string]string{
		"-c:v":       "libx264",
		"-profile:v": "high",
		"-level:v":   "3.1",
		"-pix_fmt":   "yuv420p",
		"-c:a":       "aac",
		"-ar":        "48000",
		"-ac":        "2",
		"-r":         "30",
	}
	for flag, want := range wantFixed {
		if got := valueAfter(args, flag); got != want {
			t.Errorf("flag %s: got %q, want %q", flag, got, want)
		}
	}
	if got := valueAfter(args, "-ss"); got != "10.000" {
		t.Errorf("-ss: got %q, want 10.000", got)
	}
	if got := valueAfter(args, "-to"); got != "12.500" {
		t.Errorf("-to: got %q, want 12.500", got)
	}
}

func TestClipRejectsNonPositiveDuration(t *testing.T) {
	exec := &capturingExecutor{}
	tr := newTestTranscoder(t, exec)

	if _, err := tr.Clip(context.Background(), "/videos/source.mp4", 5.0, 5.0, transcode.ClipOptions{}); err == nil {
		t.Fatal("expected error when end does not exceed start")
	}
	if len(exec.invocations) != 0 {
		t.Fatalf("expected no subprocess invocation, got %d", len(exec.invocations))
	}
}

func TestClipAppliesLoudnessNormalizationWhenEnabled(t *testing.T) {
	exec := &capturingExecutor{}
	cfg := config.Default()
	cfg.Transcode.LoudnessNormalize = true
	cfg.Transcode.LoudnessTargetLUFS = -16
	tr := transcode.New(&cfg, t.TempDir(), nil, transcode.WithExecutor(exec))

	if _, err := tr.Clip(context.Background(), "/videos/source.mp4", 0, 3, transcode.ClipOptions{}); err != nil {
		t.Fatalf("Clip: %v", err)
	}
	af := valueAfter(exec.invocations[0], "-af")
	if !strings.Contains(af, "loudnorm") || !strings.Contains(af, "I=-16.0") {
		t.Fatalf("expected loudnorm filter targeting -16 LUFS, got %q", af)
	}
}

func TestClipBurnsInCaptionsAndWatermark(t *testing.T) {
	exec := &capturingExecutor{}
	tr := newTestTranscoder(t, exec)

	opts := transcode.ClipOptions{
		Captions: []transcode.Caption{
			{Text: "hello", Start: 0, End: 0.4},
			{Text: "world", Start: 0.4, End: 0.9},
		},
		WatermarkText: "wordreel",
	}
	if _, err := tr.Clip(context.Background(), "/videos/source.mp4", 0, 1, opts); err != nil {
		t.Fatalf("Clip: %v", err)
	}
	vf := valueAfter(exec.invocations[0], "-vf")
	for _, want := range []string{"hello", "world", "wordreel", "scale=", "drawtext"} {
		if !strings.Contains(vf, want) {
			t.Errorf("-vf chain missing %q: %s", want, vf)
		}
	}
	if strings.Count(vf, "drawtext") != 3 {
		t.Errorf("expected 3 drawtext stages (2 captions + watermark), got chain: %s", vf)
	}
}

func TestClipOmitsWatermarkStageWhenTextEmpty(t *testing.T) {
	exec := &capturingExecutor{}
	tr := newTestTranscoder(t, exec)

	if _, err := tr.Clip(context.Background(), "/videos/source.mp4", 0, 1, transcode.ClipOptions{}); err != nil {
		t.Fatalf("Clip: %v", err)
	}
	vf := valueAfter(exec.invocations[0], "-vf")
	if strings.Contains(vf, "drawtext") {
		t.Errorf("expected no drawtext stages with no captions or watermark, got: %s", vf)
	}
}

func TestPlaceholderRendersSilentCardAtDefaultDuration(t *testing.T) {
	exec := &capturingExecutor{}
	tr := newTestTranscoder(t, exec)

	path, err := tr.Placeholder(context.Background(), "missing word", 0, "16:9")
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected placeholder file at %s: %v", path, statErr)
	}

	args := exec.invocations[0]
	colorInput := valueAfter(args, "-i")
	if !strings.Contains(colorInput, "color=c=black") || !strings.Contains(colorInput, "s=1280x720") {
		t.Errorf("expected 16:9 color source, got %q", colorInput)
	}
	if !strings.Contains(colorInput, "d=1.000") {
		t.Errorf("expected default 1.0s duration, got %q", colorInput)
	}
	vf := valueAfter(args, "-vf")
	if !strings.Contains(vf, "missing word") {
		t.Errorf("expected title text burned in, got %q", vf)
	}
}

func TestPlaceholderRespectsAspectRatio(t *testing.T) {
	exec := &capturingExecutor{}
	tr := newTestTranscoder(t, exec)

	if _, err := tr.Placeholder(context.Background(), "x", 2.0, "9:16"); err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	colorInput := valueAfter(exec.invocations[0], "-i")
	if !strings.Contains(colorInput, "s=720x1280") {
		t.Errorf("expected 9:16 resolution, got %q", colorInput)
	}
}

func TestClipAndPlaceholderShareIdenticalCodecParameters(t *testing.T) {
	exec := &capturingExecutor{}
	tr := newTestTranscoder(t, exec)

	if _, err := tr.Clip(context.Background(), "/videos/source.mp4", 0, 1, transcode.ClipOptions{}); err != nil {
		t.Fatalf("Clip: %v", err)
	}
	if _, err := tr.Placeholder(context.Background(), "x", 1.0, "16:9"); err != nil {
		t.Fatalf("Placeholder: %v", err)
	}

	clipArgs, cardArgs := exec.invocations[0], exec.invocations[1]
	for _, flag := range []string{"-c:v", "-profile:v", "-level:v", "-pix_fmt", "-c:a", "-ar", "-ac", "-r"} {
		if got, want := valueAfter(clipArgs, flag), valueAfter(cardArgs, flag); got != want {
			t.Errorf("flag %s diverges between clip and placeholder: clip=%q placeholder=%q", flag, got, want)
		}
	}
}

func TestTranscodeErrorIncludesStderrContext(t *testing.T) {
	exec := &capturingExecutor{err: fmt.Errorf("exit status 1")}
	tr := newTestTranscoder(t, exec)

	_, err := tr.Clip(context.Background(), "/videos/source.mp4", 0, 1, transcode.ClipOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "exit status 1") {
		t.Errorf("expected wrapped exit error, got %v", err)
	}
}

// valueAfter returns the argument immediately following the given flag, or
// "" if the flag is absent.
func valueAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
