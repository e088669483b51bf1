// Package quote holds the quote data model along with the pieces of it the
// caching layer cares about: the content hash, the blob key scheme, and the
// item diffing used for photo cleanup.
//
// The quote records themselves are owned by whatever persistence layer the
// caller has. This package only defines the shape of a record and the two
// per-variant metadata fields the document cache is allowed to write back.
package quote

import (
	"errors"
	"time"
)

// ErrNoQuote is returned by a RecordStore when there is no quote with the
// requested id.
var ErrNoQuote = errors.New("no quote, bad quote id")

// An Item is a single line of a quote. Its ID is assigned when the item is
// first created and never changes afterward, even as the item is edited or
// the list is reordered. IDs are never reused once the owning item is
// deleted. PhotoPrefix is fixed at creation time as well; every photo
// uploaded for the item lives under it, which is what makes prefix deletion
// of an item's photos safe.
type Item struct {
	ID          string
	Type        string
	Description string
	Quantity    int64
	UnitCents   int64 // unit price in cents
	PriceCents  int64 // line total in cents
	RiskTags    []string
	PhotoPrefix string
	Photos      []string // store keys of uploaded photos
}

// DocumentInfo is the cache metadata kept per rendering variant: where the
// last rendered document lives and the content hash it was rendered from.
type DocumentInfo struct {
	Key         string
	ContentHash string
}

// A Quote is the full record. Free text, the items, and the total drive the
// rendered document; the customer fields and Status do not (editing them
// never invalidates a cached document).
type Quote struct {
	ID      string
	Owner   string // owning company, part of every blob key
	Created time.Time
	Updated time.Time

	// content-affecting fields
	Intro      string
	Notes      string
	Items      []Item
	TotalCents int64

	// workflow and customer fields, not part of the rendered content hash
	Status        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	// cache metadata, keyed by variant. Written only by the document cache.
	Documents map[string]DocumentInfo
}

// Document returns the cache metadata for the given variant, if any.
func (q *Quote) Document(variant string) (DocumentInfo, bool) {
	info, ok := q.Documents[variant]
	return info, ok
}

// Item returns the item with the given id, or nil.
func (q *Quote) Item(id string) *Item {
	for i := range q.Items {
		if q.Items[i].ID == id {
			return &q.Items[i]
		}
	}
	return nil
}

// A RecordStore is the quote persistence the caller supplies. SetDocument
// writes the two cache metadata fields for one variant and must leave every
// other field alone. There is no concurrency token: the last writer wins,
// which is safe here because racing writers store semantically identical
// documents (see doccache).
type RecordStore interface {
	Quote(id string) (*Quote, error)
	SetDocument(id string, variant string, info DocumentInfo) error
}

// A Renderer turns a quote into document bytes for one variant. Render must
// be deterministic: identical content must produce an identical document, or
// the cache-hit logic is meaningless. The returned string is the content
// type of the bytes.
type Renderer interface {
	Render(q *Quote, variant string) ([]byte, string, error)
}

// RemovedItems returns the items present in old whose IDs do not appear in
// new. Matching is by ID only; an edited or reordered item is not a removal.
func RemovedItems(old, new []Item) []Item {
	keep := make(map[string]struct{}, len(new))
	for _, item := range new {
		keep[item.ID] = struct{}{}
	}
	var removed []Item
	for _, item := range old {
		if _, ok := keep[item.ID]; !ok {
			removed = append(removed, item)
		}
	}
	return removed
}
