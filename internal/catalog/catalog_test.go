package catalog_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"wordreel/internal/catalog"
	"wordreel/internal/config"
	"wordreel/internal/normalize"
)

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DBPath = filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.Open(&cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedVideo(t *testing.T, store *catalog.Store, videoID, channelID string, words [][3]any, clips map[string][][2]float64) {
	t.Helper()
	seedVideoWithLang(t, store, videoID, channelID, "", words, clips)
}

func seedVideoWithLang(t *testing.T, store *catalog.Store, videoID, channelID, lang string, words [][3]any, clips map[string][][2]float64) {
	t.Helper()
	db := openRawDB(t, store)

	if _, err := db.Exec(`INSERT INTO videos (videoId, channelId, langDefault) VALUES (?, ?, ?)`, videoID, channelID, lang); err != nil {
		t.Fatalf("insert video: %v", err)
	}

	payload, err := json.Marshal(words)
	if err != nil {
		t.Fatalf("marshal transcript: %v", err)
	}
	duration := 0.0
	if len(words) > 0 {
		duration = words[len(words)-1][2].(float64)
	}
	if _, err := db.Exec(`INSERT INTO video_transcripts (videoId, transcriptJson, wordCount, duration) VALUES (?, ?, ?, ?)`,
		videoID, string(payload), len(words), duration); err != nil {
		t.Fatalf("insert transcript: %v", err)
	}

	for word, spans := range clips {
		for _, span := range spans {
			if _, err := db.Exec(`INSERT INTO word_clips (word, videoId, start, duration) VALUES (?, ?, ?, ?)`,
				word, videoID, span[0], span[1]); err != nil {
				t.Fatalf("insert clip: %v", err)
			}
		}
	}
}

// openRawDB re-opens the same sqlite file for direct seeding, since Store
// does not expose its *sql.DB.
func openRawDB(t *testing.T, store *catalog.Store) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLookupWordPrefersLongerDuration(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "v1", "c1", [][3]any{{"hello", 0.0, 0.5}},
		map[string][][2]float64{"hello": {{0.0, 0.5}}})
	seedVideo(t, store, "v2", "c1", [][3]any{{"hello", 0.0, 1.2}},
		map[string][][2]float64{"hello": {{0.0, 1.2}}})

	clip, err := store.LookupWord(context.Background(), "hello", catalog.LookupOptions{})
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if clip == nil || clip.VideoID != "v2" {
		t.Fatalf("expected v2 (longer duration), got %+v", clip)
	}
}

func TestLookupWordExclusionWaivedWhenExhausted(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "v1", "c1", [][3]any{{"world", 0.0, 0.6}},
		map[string][][2]float64{"world": {{0.0, 0.6}}})

	opts := catalog.LookupOptions{ExcludeVideos: []string{"v1"}}
	clip, err := store.LookupWord(context.Background(), "world", opts)
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if clip == nil || clip.VideoID != "v1" {
		t.Fatalf("expected exclusion to be waived and return v1, got %+v", clip)
	}
}

func TestLookupWordMissReturnsNilNotError(t *testing.T) {
	store := newTestStore(t)
	clip, err := store.LookupWord(context.Background(), "absent", catalog.LookupOptions{})
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if clip != nil {
		t.Fatalf("expected nil clip, got %+v", clip)
	}
}

func TestLookupWordPrefersMatchingLanguage(t *testing.T) {
	store := newTestStore(t)
	seedVideoWithLang(t, store, "v-en", "c1", "en", [][3]any{{"hello", 0.0, 0.5}},
		map[string][][2]float64{"hello": {{0.0, 0.5}}})
	seedVideoWithLang(t, store, "v-es", "c1", "es", [][3]any{{"hello", 0.0, 1.2}},
		map[string][][2]float64{"hello": {{0.0, 1.2}}})

	clip, err := store.LookupWord(context.Background(), "hello", catalog.LookupOptions{PreferredLanguage: "en"})
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if clip == nil || clip.VideoID != "v-en" {
		t.Fatalf("expected the en-language candidate despite its shorter duration, got %+v", clip)
	}
}

func TestLookupWordLanguagePreferenceWaivedWhenExhausted(t *testing.T) {
	store := newTestStore(t)
	seedVideoWithLang(t, store, "v-es", "c1", "es", [][3]any{{"hello", 0.0, 0.5}},
		map[string][][2]float64{"hello": {{0.0, 0.5}}})

	clip, err := store.LookupWord(context.Background(), "hello", catalog.LookupOptions{PreferredLanguage: "en"})
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if clip == nil || clip.VideoID != "v-es" {
		t.Fatalf("expected the language restriction to be waived when no match exists, got %+v", clip)
	}
}

func TestLookupWordLanguagePreferenceAllowsUntaggedVideos(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "v-untagged", "c1", [][3]any{{"hello", 0.0, 0.5}},
		map[string][][2]float64{"hello": {{0.0, 0.5}}})

	clip, err := store.LookupWord(context.Background(), "hello", catalog.LookupOptions{PreferredLanguage: "en"})
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if clip == nil || clip.VideoID != "v-untagged" {
		t.Fatalf("expected an untagged video to remain eligible, got %+v", clip)
	}
}

func TestLookupPhraseFromIndex(t *testing.T) {
	store := newTestStore(t)
	db := openRawDB(t, store)
	if _, err := db.Exec(`INSERT INTO videos (videoId, channelId) VALUES (?, ?)`, "v1", "c1"); err != nil {
		t.Fatalf("insert video: %v", err)
	}
	hash := normalize.PhraseHash("hello world")
	if _, err := db.Exec(`INSERT INTO phrase_index (phraseHash, phraseText, videoId, start, end, wordCount) VALUES (?, ?, ?, ?, ?, ?)`,
		hash, "hello world", "v1", 0.0, 1.1, 2); err != nil {
		t.Fatalf("insert phrase index: %v", err)
	}

	hit, err := store.LookupPhrase(context.Background(), "hello world", catalog.LookupOptions{})
	if err != nil {
		t.Fatalf("LookupPhrase: %v", err)
	}
	if hit == nil || hit.VideoID != "v1" || hit.Start != 0.0 || hit.End != 1.1 {
		t.Fatalf("unexpected hit: %+v", hit)
	}
}

func TestLookupPhraseFallsBackToTranscriptScan(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "v1", "c1", [][3]any{
		{"hello", 0.0, 0.5},
		{"world", 0.5, 1.1},
		{"how", 1.1, 1.5},
	}, map[string][][2]float64{
		"hello": {{0.0, 0.5}},
		"world": {{0.5, 0.6}},
		"how":   {{1.1, 0.4}},
	})

	hit, err := store.LookupPhrase(context.Background(), "hello world", catalog.LookupOptions{})
	if err != nil {
		t.Fatalf("LookupPhrase: %v", err)
	}
	if hit == nil {
		t.Fatal("expected transcript-scan hit")
	}
	if hit.VideoID != "v1" || hit.Start != 0.0 || hit.End != 1.1 {
		t.Fatalf("unexpected hit: %+v", hit)
	}
}

func TestGetTranscriptCaches(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "v1", "c1", [][3]any{{"hi", 0.0, 0.3}},
		map[string][][2]float64{"hi": {{0.0, 0.3}}})

	first, err := store.GetTranscript(context.Background(), "v1")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	second, err := store.GetTranscript(context.Background(), "v1")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if first.WordCount != second.WordCount {
		t.Fatalf("expected consistent cached transcript")
	}
}

func TestStatsReportsCounts(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "v1", "c1", [][3]any{{"hi", 0.0, 0.3}},
		map[string][][2]float64{"hi": {{0.0, 0.3}}})

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Videos != 1 || stats.Words != 1 || !stats.HasTranscripts {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
