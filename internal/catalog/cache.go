package catalog

import (
	"container/list"
	"context"
)

// transcriptCache is a bounded LRU cache of parsed transcripts, guarded by
// Store.cacheMu. A plain map+list is used rather than a third-party LRU
// package: the eviction policy is a dozen lines and no dependency in the
// corpus supplies one.
type transcriptCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type transcriptCacheEntry struct {
	videoID    string
	transcript *Transcript
}

func newTranscriptCache(capacity int) *transcriptCache {
	if capacity <= 0 {
		capacity = transcriptCacheSize
	}
	return &transcriptCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *transcriptCache) get(videoID string) (*Transcript, bool) {
	el, ok := c.entries[videoID]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*transcriptCacheEntry).transcript, true
}

func (c *transcriptCache) put(videoID string, transcript *Transcript) {
	if el, ok := c.entries[videoID]; ok {
		el.Value.(*transcriptCacheEntry).transcript = transcript
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&transcriptCacheEntry{videoID: videoID, transcript: transcript})
	c.entries[videoID] = el
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*transcriptCacheEntry).videoID)
	}
}

// cachedTranscript is the mutex-guarded entry point used by lookup code.
func (s *Store) cachedTranscript(ctx context.Context, videoID string) (*Transcript, error) {
	s.cacheMu.Lock()
	if t, ok := s.cache.get(videoID); ok {
		s.cacheMu.Unlock()
		return t, nil
	}
	s.cacheMu.Unlock()

	transcript, err := s.loadTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if transcript == nil {
		return nil, nil
	}

	s.cacheMu.Lock()
	s.cache.put(videoID, transcript)
	s.cacheMu.Unlock()
	return transcript, nil
}
