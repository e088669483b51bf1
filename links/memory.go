package links

import (
	"sync"
	"time"
)

// memoryLinks is an in-memory LinkDB for testing.
type memoryLinks struct {
	m       sync.RWMutex
	entries map[string]Entry
}

var _ LinkDB = &memoryLinks{}

// NewMemoryLinks returns a new, empty in-memory LinkDB.
func NewMemoryLinks() LinkDB {
	return &memoryLinks{entries: make(map[string]Entry)}
}

func (ml *memoryLinks) Lookup(slug string) *Entry {
	ml.m.RLock()
	defer ml.m.RUnlock()
	if e, ok := ml.entries[slug]; ok {
		return &e
	}
	return nil
}

func (ml *memoryLinks) ForQuote(quoteID string) []Entry {
	ml.m.RLock()
	defer ml.m.RUnlock()
	var result []Entry
	for _, e := range ml.entries {
		if e.QuoteID == quoteID {
			result = append(result, e)
		}
	}
	return result
}

func (ml *memoryLinks) Upsert(e Entry) error {
	ml.m.Lock()
	defer ml.m.Unlock()
	if prev, ok := ml.entries[e.Slug]; ok {
		prev.DocumentKey = e.DocumentKey
		prev.Modified = e.Modified
		prev.URL = ""
		prev.URLExpires = time.Time{}
		ml.entries[e.Slug] = prev
		return nil
	}
	ml.entries[e.Slug] = e
	return nil
}

func (ml *memoryLinks) SaveURL(slug string, url string, expires time.Time) {
	ml.m.Lock()
	defer ml.m.Unlock()
	if e, ok := ml.entries[slug]; ok {
		e.URL = url
		e.URLExpires = expires
		ml.entries[slug] = e
	}
}

func (ml *memoryLinks) Delete(slug string) error {
	ml.m.Lock()
	delete(ml.entries, slug)
	ml.m.Unlock()
	return nil
}
