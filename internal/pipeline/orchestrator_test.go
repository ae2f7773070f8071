package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wordreel/internal/pipeline"
	"wordreel/internal/pipeline/errs"
	"wordreel/internal/testsupport"
)

func TestOrchestratorRunProducesVideoForFullyMatchedSentence(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.SeedVideo(t, store, "vid1", "chan1",
		[][3]any{{"alpha", 0.0, 1.0}, {"bravo", 1.0, 2.0}},
		map[string][][2]float64{
			"alpha": {{0.0, 1.0}},
			"bravo": {{1.0, 1.0}},
		},
	)

	orch := pipeline.New(cfg, store, nil)

	var calls []int
	result, err := orch.Run(context.Background(), pipeline.Request{
		Text:            "alpha bravo",
		MaxPhraseLength: 1,
	}, func(completed, total int) {
		calls = append(calls, completed)
		if total != 2 {
			t.Errorf("progress total = %d, want 2", total)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != errs.StatusSuccess {
		t.Errorf("status = %q, want success", result.Status)
	}
	if result.VideoPath == "" {
		t.Fatal("expected a video path")
	}
	if _, statErr := os.Stat(result.VideoPath); statErr != nil {
		t.Errorf("output file missing: %v", statErr)
	}
	if filepath.Dir(result.VideoPath) != cfg.Paths.OutputDir {
		t.Errorf("output path %q not under configured output dir %q", result.VideoPath, cfg.Paths.OutputDir)
	}
	if len(result.MissingWords) != 0 {
		t.Errorf("missing words = %v, want none", result.MissingWords)
	}
	if len(calls) != 2 {
		t.Errorf("progress callback invoked %d times, want 2", len(calls))
	}
	if len(result.WordTimings) != 2 {
		t.Fatalf("word timings = %v, want 2 entries", result.WordTimings)
	}
	if result.WordTimings[0].Word != "alpha" || result.WordTimings[1].Word != "bravo" {
		t.Errorf("word timings out of order: %+v", result.WordTimings)
	}
}

func TestOrchestratorRunSubstitutesPlaceholderForUnknownWord(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.SeedVideo(t, store, "vid1", "chan1",
		[][3]any{{"alpha", 0.0, 1.0}},
		map[string][][2]float64{"alpha": {{0.0, 1.0}}},
	)

	orch := pipeline.New(cfg, store, nil)

	result, err := orch.Run(context.Background(), pipeline.Request{
		Text:            "alpha zzzqqq",
		MaxPhraseLength: 1,
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != errs.StatusPartialFailure {
		t.Errorf("status = %q, want partial_failure", result.Status)
	}
	if len(result.MissingWords) != 1 || result.MissingWords[0] != "zzzqqq" {
		t.Errorf("missing words = %v, want [zzzqqq]", result.MissingWords)
	}
	if result.VideoPath == "" {
		t.Fatal("expected a video path even with a placeholder pick")
	}
}

func TestOrchestratorRunPrefersRequestedLanguage(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.SeedVideo(t, store, "vid-en", "chan1",
		[][3]any{{"alpha", 0.0, 1.0}},
		map[string][][2]float64{"alpha": {{0.0, 1.0}}},
	)
	testsupport.SeedVideo(t, store, "vid-es", "chan2",
		[][3]any{{"alpha", 0.0, 5.0}},
		map[string][][2]float64{"alpha": {{0.0, 5.0}}},
	)
	testsupport.SetVideoLanguage(t, store, "vid-en", "en")
	testsupport.SetVideoLanguage(t, store, "vid-es", "es")

	orch := pipeline.New(cfg, store, nil)

	result, err := orch.Run(context.Background(), pipeline.Request{
		Text:            "alpha",
		Lang:            "en",
		MaxPhraseLength: 1,
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != errs.StatusSuccess {
		t.Errorf("status = %q, want success", result.Status)
	}
	if len(result.WordTimings) != 1 {
		t.Fatalf("word timings = %v, want 1 entry", result.WordTimings)
	}
}

func TestOrchestratorRunRejectsEmptyText(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	store := testsupport.MustOpenCatalog(t, cfg)

	orch := pipeline.New(cfg, store, nil)

	_, err := orch.Run(context.Background(), pipeline.Request{Text: "   "}, nil)
	if err == nil {
		t.Fatal("expected an error for blank text")
	}
	if got := errs.JobStatus(err); got != errs.StatusFailed {
		t.Errorf("JobStatus = %q, want failed", got)
	}
}

func TestOrchestratorRunReturnsCancelledStatusForCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.SeedVideo(t, store, "vid1", "chan1",
		[][3]any{{"alpha", 0.0, 1.0}},
		map[string][][2]float64{"alpha": {{0.0, 1.0}}},
	)

	orch := pipeline.New(cfg, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.Run(ctx, pipeline.Request{
		Text:            "alpha",
		MaxPhraseLength: 1,
	}, nil)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if got := errs.JobStatus(err); got != errs.StatusCancelled {
		t.Errorf("JobStatus = %q, want cancelled", got)
	}
	if result.Status != errs.StatusCancelled {
		t.Errorf("result.Status = %q, want cancelled", result.Status)
	}
}

// TestOrchestratorRunDoesNotMislabelCancellationAsCatalogMiss guards against
// treating a cancelled planning pass as an ordinary catalog gap: the
// resulting error must classify as cancellation, not ErrCatalogMiss, so
// callers don't report a word-coverage problem for a job the caller asked
// to stop.
func TestOrchestratorRunDoesNotMislabelCancellationAsCatalogMiss(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.SeedVideo(t, store, "vid1", "chan1",
		[][3]any{{"alpha", 0.0, 1.0}},
		map[string][][2]float64{"alpha": {{0.0, 1.0}}},
	)

	orch := pipeline.New(cfg, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Run(ctx, pipeline.Request{
		Text:            "alpha",
		MaxPhraseLength: 1,
	}, nil)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if errors.Is(err, errs.ErrCatalogMiss) {
		t.Errorf("cancellation misclassified as catalog miss: %v", err)
	}
	if !errors.Is(err, errs.ErrCancelled) {
		t.Errorf("expected error chain to contain ErrCancelled, got: %v", err)
	}
}

func TestOrchestratorRunCleansUpScratchDirectoryWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	cfg.Pipeline.CleanupTempFiles = true
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.SeedVideo(t, store, "vid1", "chan1",
		[][3]any{{"alpha", 0.0, 1.0}},
		map[string][][2]float64{"alpha": {{0.0, 1.0}}},
	)

	orch := pipeline.New(cfg, store, nil)

	result, err := orch.Run(context.Background(), pipeline.Request{
		Text:            "alpha",
		MaxPhraseLength: 1,
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	jobsDir := filepath.Join(cfg.Paths.TempDir, "jobs")
	entries, statErr := os.ReadDir(jobsDir)
	if statErr != nil {
		t.Fatalf("read jobs dir: %v", statErr)
	}
	for _, entry := range entries {
		remaining, _ := os.ReadDir(filepath.Join(jobsDir, entry.Name()))
		if len(remaining) != 0 {
			t.Errorf("scratch dir %s not cleaned up: %v", entry.Name(), remaining)
		}
	}
	if _, statErr := os.Stat(result.VideoPath); statErr != nil {
		t.Errorf("published output should survive scratch cleanup: %v", statErr)
	}
}
