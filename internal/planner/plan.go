package planner

import (
	"context"
	"fmt"

	"wordreel/internal/catalog"
	"wordreel/internal/normalize"
)

// Catalog is the subset of catalog.Store the planner depends on, kept as an
// interface so tests can supply a synthetic catalog.
type Catalog interface {
	LookupWord(ctx context.Context, word string, opts catalog.LookupOptions) (*catalog.Clip, error)
	LookupPhrase(ctx context.Context, phrase string, opts catalog.LookupOptions) (*catalog.PhraseHit, error)
}

var _ Catalog = (*catalog.Store)(nil)

// PickKind distinguishes a clip pick from a placeholder pick.
type PickKind int

const (
	PickClip PickKind = iota
	PickPlaceholder
)

// Pick is one element of a plan: either a clip covering [WordStart,WordEnd)
// of the input token sequence, or a placeholder for a single token.
type Pick struct {
	Kind      PickKind
	Text      string
	VideoID   string
	Start     float64
	End       float64
	WordStart int
	WordEnd   int
}

// Plan runs the greedy longest-match algorithm (§4.2) over tokens, which
// must already be normalized, and maxPhraseLen clamped to [1,50] by the
// caller. lang, when non-empty, biases candidate selection toward videos
// whose langDefault matches (see catalog.LookupOptions.PreferredLanguage).
// It returns picks whose WordStart/WordEnd spans exactly partition
// [0, len(tokens)) with no overlap or gap.
func Plan(ctx context.Context, cat Catalog, tokens []string, maxPhraseLen int, lang string) ([]Pick, error) {
	if maxPhraseLen < 1 {
		maxPhraseLen = 1
	}
	if maxPhraseLen > 50 {
		maxPhraseLen = 50
	}

	var picks []Pick
	usedVideos := map[string]struct{}{}
	n := len(tokens)

	for i := 0; i < n; {
		limit := maxPhraseLen
		if n-i < limit {
			limit = n - i
		}

		found := false
		for k := limit; k >= 2; k-- {
			phrase := joinTokens(tokens[i : i+k])
			hit, err := cat.LookupPhrase(ctx, phrase, catalog.LookupOptions{ExcludeVideos: excludeList(usedVideos), PreferredLanguage: lang})
			if err != nil {
				return nil, fmt.Errorf("lookup phrase %q: %w", phrase, err)
			}
			if hit == nil {
				continue
			}
			picks = append(picks, Pick{
				Kind:      PickClip,
				Text:      hit.Text,
				VideoID:   hit.VideoID,
				Start:     hit.Start,
				End:       hit.End,
				WordStart: i,
				WordEnd:   i + k,
			})
			usedVideos[hit.VideoID] = struct{}{}
			i += k
			found = true
			break
		}
		if found {
			continue
		}

		word := tokens[i]
		clip, err := cat.LookupWord(ctx, word, catalog.LookupOptions{ExcludeVideos: excludeList(usedVideos), PreferredLanguage: lang})
		if err != nil {
			return nil, fmt.Errorf("lookup word %q: %w", word, err)
		}
		if clip != nil {
			picks = append(picks, Pick{
				Kind:      PickClip,
				Text:      word,
				VideoID:   clip.VideoID,
				Start:     clip.Start,
				End:       clip.End(),
				WordStart: i,
				WordEnd:   i + 1,
			})
			usedVideos[clip.VideoID] = struct{}{}
		} else {
			picks = append(picks, Pick{
				Kind:      PickPlaceholder,
				Text:      word,
				WordStart: i,
				WordEnd:   i + 1,
			})
		}
		i++
	}

	return picks, nil
}

// PlanText is a convenience wrapper that normalizes and tokenizes text
// before calling Plan.
func PlanText(ctx context.Context, cat Catalog, text string, maxPhraseLen int, lang string) ([]Pick, error) {
	tokens := normalize.Tokens(text)
	return Plan(ctx, cat, tokens, maxPhraseLen, lang)
}

func joinTokens(tokens []string) string {
	out := tokens[0]
	for _, t := range tokens[1:] {
		out += " " + t
	}
	return out
}

func excludeList(used map[string]struct{}) []string {
	if len(used) == 0 {
		return nil
	}
	out := make([]string, 0, len(used))
	for v := range used {
		out = append(out, v)
	}
	return out
}

// MissingWords returns the text of every placeholder pick, in plan order.
func MissingWords(picks []Pick) []string {
	var missing []string
	for _, p := range picks {
		if p.Kind == PickPlaceholder {
			missing = append(missing, p.Text)
		}
	}
	return missing
}
