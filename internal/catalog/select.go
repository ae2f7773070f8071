package catalog

import "sort"

// candidate is the common shape word and phrase lookups reduce to before the
// selection policy picks a winner.
type candidate struct {
	videoID string
	channel string
	lang    string
	start   float64
	metric  float64 // duration for words, end-start for phrases
}

// selectBest applies the §4.1 selection policy: restrict to preferred
// channels, restrict to the preferred language, exclude listed videos
// (waived if that would exclude everything), prefer the largest metric,
// then break ties by (videoID, start).
func selectBest(candidates []candidate, opts LookupOptions) *candidate {
	pool := candidates
	if len(opts.PreferredChannels) > 0 {
		pool = filterByChannel(pool, opts.PreferredChannels)
	}
	if opts.PreferredLanguage != "" {
		restricted := filterByLanguage(pool, opts.PreferredLanguage)
		if len(restricted) > 0 {
			pool = restricted
		}
	}

	excluded := filterExcluding(pool, opts.ExcludeVideos)
	if len(excluded) == 0 {
		// Every candidate was excluded: waive the exclusion rather than
		// return nothing.
		excluded = pool
	}
	if len(excluded) == 0 {
		return nil
	}

	sort.SliceStable(excluded, func(i, j int) bool {
		a, b := excluded[i], excluded[j]
		if a.metric != b.metric {
			return a.metric > b.metric
		}
		if a.videoID != b.videoID {
			return a.videoID < b.videoID
		}
		return a.start < b.start
	})
	best := excluded[0]
	return &best
}

func filterByChannel(candidates []candidate, channels []string) []candidate {
	allowed := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		allowed[ch] = struct{}{}
	}
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := allowed[c.channel]; ok {
			out = append(out, c)
		}
	}
	return out
}

func filterByLanguage(candidates []candidate, lang string) []candidate {
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		// Candidates with no recorded language never disqualify themselves
		// from a language-scoped request: a missing langDefault is treated
		// as "unknown", not "mismatched".
		if c.lang == "" || c.lang == lang {
			out = append(out, c)
		}
	}
	return out
}

func filterExcluding(candidates []candidate, exclude []string) []candidate {
	if len(exclude) == 0 {
		return candidates
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, v := range exclude {
		excluded[v] = struct{}{}
	}
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := excluded[c.videoID]; !ok {
			out = append(out, c)
		}
	}
	return out
}
