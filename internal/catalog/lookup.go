package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"wordreel/internal/language"
	"wordreel/internal/normalize"
)

// LookupWord returns one clip for word, chosen by the selection policy, or
// nil if no candidate exists under any fallback.
func (s *Store) LookupWord(ctx context.Context, word string, opts LookupOptions) (*Clip, error) {
	word = normalize.Text(word)
	if word == "" {
		return nil, nil
	}

	rows, err := s.queryWithRetry(ctx, `
		SELECT word_clips.videoId, word_clips.start, word_clips.duration, COALESCE(videos.channelId, ''), COALESCE(videos.langDefault, '')
		FROM word_clips
		LEFT JOIN videos ON videos.videoId = word_clips.videoId
		WHERE word_clips.word = ?`, word)
	if err != nil {
		return nil, fmt.Errorf("lookup word %q: %w", word, err)
	}
	defer rows.Close()

	var candidates []candidate
	byKey := map[string]Clip{}
	for rows.Next() {
		var videoID, channel, lang string
		var start, duration float64
		if err := rows.Scan(&videoID, &start, &duration, &channel, &lang); err != nil {
			return nil, fmt.Errorf("scan word clip: %w", err)
		}
		c := candidate{videoID: videoID, channel: channel, lang: language.ToISO2(lang), start: start, metric: duration}
		candidates = append(candidates, c)
		byKey[candidateKey(videoID, start)] = Clip{Word: word, VideoID: videoID, Start: start, Duration: duration}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate word clips: %w", err)
	}

	opts.PreferredLanguage = language.ToISO2(opts.PreferredLanguage)
	best := selectBest(candidates, opts)
	if best == nil {
		return nil, nil
	}
	clip := byKey[candidateKey(best.videoID, best.start)]
	return &clip, nil
}

// LookupPhrase tries the phrase index first, then falls back to a
// transcript scan when the index has no entry for phrase.
func (s *Store) LookupPhrase(ctx context.Context, phrase string, opts LookupOptions) (*PhraseHit, error) {
	normalized := normalize.Text(phrase)
	if normalized == "" {
		return nil, nil
	}

	hit, err := s.lookupPhraseIndex(ctx, normalized, opts)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		return hit, nil
	}
	return s.lookupPhraseByTranscriptScan(ctx, normalized, opts)
}

func (s *Store) lookupPhraseIndex(ctx context.Context, normalizedPhrase string, opts LookupOptions) (*PhraseHit, error) {
	hash := normalize.PhraseHash(normalizedPhrase)

	rows, err := s.queryWithRetry(ctx, `
		SELECT phrase_index.videoId, phrase_index.start, phrase_index.end, phrase_index.phraseText,
		       COALESCE(videos.channelId, ''), COALESCE(videos.langDefault, '')
		FROM phrase_index
		LEFT JOIN videos ON videos.videoId = phrase_index.videoId
		WHERE phrase_index.phraseHash = ?`, hash)
	if err != nil {
		return nil, fmt.Errorf("lookup phrase index %q: %w", normalizedPhrase, err)
	}
	defer rows.Close()

	var candidates []candidate
	byKey := map[string]PhraseHit{}
	for rows.Next() {
		var videoID, text, channel, lang string
		var start, end float64
		if err := rows.Scan(&videoID, &start, &end, &text, &channel, &lang); err != nil {
			return nil, fmt.Errorf("scan phrase index row: %w", err)
		}
		candidates = append(candidates, candidate{videoID: videoID, channel: channel, lang: language.ToISO2(lang), start: start, metric: end - start})
		byKey[candidateKey(videoID, start)] = PhraseHit{VideoID: videoID, Start: start, End: end, Text: text}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phrase index: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	opts.PreferredLanguage = language.ToISO2(opts.PreferredLanguage)
	best := selectBest(candidates, opts)
	if best == nil {
		return nil, nil
	}
	hit := byKey[candidateKey(best.videoID, best.start)]
	return &hit, nil
}

// lookupPhraseByTranscriptScan finds videos whose word table contains every
// token in the phrase, then scans each candidate's cached transcript for a
// contiguous normalized match.
func (s *Store) lookupPhraseByTranscriptScan(ctx context.Context, normalizedPhrase string, opts LookupOptions) (*PhraseHit, error) {
	tokens := normalize.Tokens(normalizedPhrase)
	if len(tokens) == 0 {
		return nil, nil
	}

	videoIDs, err := s.videosContainingAllWords(ctx, tokens)
	if err != nil {
		return nil, err
	}
	if len(videoIDs) == 0 {
		return nil, nil
	}

	var candidates []candidate
	byKey := map[string]PhraseHit{}
	for _, videoID := range videoIDs {
		transcript, err := s.cachedTranscript(ctx, videoID)
		if err != nil {
			return nil, err
		}
		if transcript == nil {
			continue
		}
		match := scanTranscriptForPhrase(transcript, tokens)
		if match == nil {
			continue
		}
		channel, lang, err := s.channelAndLangForVideo(ctx, videoID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{
			videoID: videoID,
			channel: channel,
			lang:    language.ToISO2(lang),
			start:   match.Start,
			metric:  match.End - match.Start,
		})
		byKey[candidateKey(videoID, match.Start)] = *match
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	opts.PreferredLanguage = language.ToISO2(opts.PreferredLanguage)
	best := selectBest(candidates, opts)
	if best == nil {
		return nil, nil
	}
	hit := byKey[candidateKey(best.videoID, best.start)]
	return &hit, nil
}

func scanTranscriptForPhrase(transcript *Transcript, tokens []string) *PhraseHit {
	words := transcript.Words
	n := len(tokens)
	for i := 0; i+n <= len(words); i++ {
		match := true
		for j := 0; j < n; j++ {
			if normalize.Text(words[i+j].Text) != tokens[j] {
				match = false
				break
			}
		}
		if match {
			return &PhraseHit{
				VideoID: transcript.VideoID,
				Start:   words[i].Start,
				End:     words[i+n-1].End,
				Text:    strings.Join(tokens, " "),
			}
		}
	}
	return nil
}

func (s *Store) videosContainingAllWords(ctx context.Context, tokens []string) ([]string, error) {
	var common map[string]struct{}
	for _, token := range tokens {
		rows, err := s.queryWithRetry(ctx, "SELECT DISTINCT videoId FROM word_clips WHERE word = ?", token)
		if err != nil {
			return nil, fmt.Errorf("lookup videos for word %q: %w", token, err)
		}
		current := map[string]struct{}{}
		for rows.Next() {
			var videoID string
			if err := rows.Scan(&videoID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan video id: %w", err)
			}
			current[videoID] = struct{}{}
		}
		rerr := rows.Err()
		rows.Close()
		if rerr != nil {
			return nil, fmt.Errorf("iterate videos for word %q: %w", token, rerr)
		}

		if common == nil {
			common = current
			continue
		}
		for videoID := range common {
			if _, ok := current[videoID]; !ok {
				delete(common, videoID)
			}
		}
		if len(common) == 0 {
			return nil, nil
		}
	}

	out := make([]string, 0, len(common))
	for videoID := range common {
		out = append(out, videoID)
	}
	return out, nil
}

func (s *Store) channelAndLangForVideo(ctx context.Context, videoID string) (string, string, error) {
	var channel, lang sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT channelId, langDefault FROM videos WHERE videoId = ?", videoID).Scan(&channel, &lang)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("lookup channel/lang for video %q: %w", videoID, err)
	}
	return channel.String, lang.String, nil
}

// GetTranscript returns the cached or freshly loaded transcript for videoID,
// or nil if the video has no transcript.
func (s *Store) GetTranscript(ctx context.Context, videoID string) (*Transcript, error) {
	return s.cachedTranscript(ctx, videoID)
}

func (s *Store) loadTranscript(ctx context.Context, videoID string) (*Transcript, error) {
	var transcriptJSON string
	var wordCount int
	var duration float64
	err := s.db.QueryRowContext(ctx,
		"SELECT transcriptJson, wordCount, duration FROM video_transcripts WHERE videoId = ?", videoID,
	).Scan(&transcriptJSON, &wordCount, &duration)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transcript for video %q: %w", videoID, err)
	}

	var raw [][3]any
	if err := json.Unmarshal([]byte(transcriptJSON), &raw); err != nil {
		return nil, fmt.Errorf("parse transcript json for video %q: %w", videoID, err)
	}

	words := make([]TranscriptWord, 0, len(raw))
	for _, entry := range raw {
		text, _ := entry[0].(string)
		start, _ := entry[1].(float64)
		end, _ := entry[2].(float64)
		words = append(words, TranscriptWord{Text: text, Start: start, End: end})
	}

	return &Transcript{
		VideoID:   videoID,
		Words:     words,
		WordCount: wordCount,
		Duration:  duration,
	}, nil
}

func candidateKey(videoID string, start float64) string {
	return fmt.Sprintf("%s|%.6f", videoID, start)
}
