package quote

import (
	"sync"
)

// MemoryStore is an in-memory RecordStore. It is intended for testing and
// development; real deployments keep quotes in whatever the application's
// database is and implement RecordStore over it.
type MemoryStore struct {
	m      sync.RWMutex
	quotes map[string]*Quote
}

var _ RecordStore = &MemoryStore{}

// NewMemoryStore returns a new, empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{quotes: make(map[string]*Quote)}
}

// Quote returns a copy of the stored quote, or ErrNoQuote.
func (ms *MemoryStore) Quote(id string) (*Quote, error) {
	ms.m.RLock()
	q, ok := ms.quotes[id]
	ms.m.RUnlock()
	if !ok {
		return nil, ErrNoQuote
	}
	return copyQuote(q), nil
}

// Save stores a copy of q, replacing any previous version.
func (ms *MemoryStore) Save(q *Quote) error {
	ms.m.Lock()
	ms.quotes[q.ID] = copyQuote(q)
	ms.m.Unlock()
	return nil
}

// Delete removes the quote. Deleting an absent quote is not an error.
func (ms *MemoryStore) Delete(id string) error {
	ms.m.Lock()
	delete(ms.quotes, id)
	ms.m.Unlock()
	return nil
}

// SetDocument overwrites the cache metadata for one variant, leaving every
// other field of the quote alone.
func (ms *MemoryStore) SetDocument(id string, variant string, info DocumentInfo) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	q, ok := ms.quotes[id]
	if !ok {
		return ErrNoQuote
	}
	if q.Documents == nil {
		q.Documents = make(map[string]DocumentInfo)
	}
	q.Documents[variant] = info
	return nil
}

// copyQuote makes a copy deep enough that callers mutating the result do not
// reach back into the stored record.
func copyQuote(q *Quote) *Quote {
	dup := *q
	dup.Items = make([]Item, len(q.Items))
	copy(dup.Items, q.Items)
	for i := range dup.Items {
		dup.Items[i].RiskTags = append([]string(nil), q.Items[i].RiskTags...)
		dup.Items[i].Photos = append([]string(nil), q.Items[i].Photos...)
	}
	if q.Documents != nil {
		dup.Documents = make(map[string]DocumentInfo, len(q.Documents))
		for k, v := range q.Documents {
			dup.Documents[k] = v
		}
	}
	return &dup
}
