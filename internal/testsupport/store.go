package testsupport

import (
	"database/sql"
	"encoding/json"
	"testing"

	"wordreel/internal/catalog"
	"wordreel/internal/config"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedVideo inserts a video, its transcript, and one or more word clips
// directly through the catalog's sqlite file, bypassing the ingestion
// pipeline so tests can set up fixtures quickly.
func SeedVideo(t testing.TB, store *catalog.Store, videoID, channelID string, transcript [][3]any, clips map[string][][2]float64) {
	t.Helper()

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open catalog for seeding: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT INTO videos (videoId, channelId) VALUES (?, ?)`, videoID, channelID); err != nil {
		t.Fatalf("insert video: %v", err)
	}

	payload, err := json.Marshal(transcript)
	if err != nil {
		t.Fatalf("marshal transcript: %v", err)
	}
	duration := 0.0
	if len(transcript) > 0 {
		duration, _ = transcript[len(transcript)-1][2].(float64)
	}
	if _, err := db.Exec(`INSERT INTO video_transcripts (videoId, transcriptJson, wordCount, duration) VALUES (?, ?, ?, ?)`,
		videoID, string(payload), len(transcript), duration); err != nil {
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

// SetVideoLanguage sets a previously seeded video's langDefault column,
// for tests exercising language-preferred catalog lookups.
func SetVideoLanguage(t testing.TB, store *catalog.Store, videoID, lang string) {
	t.Helper()

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open catalog for seeding: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`UPDATE videos SET langDefault = ? WHERE videoId = ?`, lang, videoID); err != nil {
		t.Fatalf("set video language: %v", err)
	}
}
