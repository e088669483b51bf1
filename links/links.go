package links

import (
	"errors"
	"log"
	"time"

	"github.com/facebookgo/clock"
	raven "github.com/getsentry/raven-go"

	"github.com/ndlib/quotedoc/store"
)

// ErrNoLink is returned by Resolve when no registry entry exists for a slug.
var ErrNoLink = errors.New("no link for slug")

// DefaultTTL is the presigned URL lifetime used when a Registry is created
// with a zero TTL.
const DefaultTTL = time.Hour

// refreshMargin is the floor on how close to expiry a cached URL may get
// before Resolve signs a fresh one. The effective margin is at least half
// the TTL, so every URL handed out still has half its nominal lifetime
// left.
const refreshMargin = 5 * time.Minute

// A Registry hands out and resolves short links.
//
// Set the public fields before use and do not change them afterward. Clock
// may be left nil, in which case wall time is used; tests inject a mock to
// exercise the URL refresh window.
type Registry struct {
	DB    LinkDB
	Store store.Store   // where the documents live, used for presigning
	TTL   time.Duration // lifetime of presigned URLs, DefaultTTL if zero
	Clock clock.Clock
}

func (r *Registry) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}

func (r *Registry) ttl() time.Duration {
	if r.TTL == 0 {
		return DefaultTTL
	}
	return r.TTL
}

func (r *Registry) margin() time.Duration {
	if m := r.ttl() / 2; m > refreshMargin {
		return m
	}
	return refreshMargin
}

// Upsert makes sure a registry entry exists mapping the (quote, variant)
// slug to the given document key, and returns the slug. Calling it again
// for the same pair updates the key in place; there is never more than one
// entry per pair.
func (r *Registry) Upsert(quoteID, variant, documentKey string) (string, error) {
	now := r.now()
	slug := Slug(quoteID, variant)
	err := r.DB.Upsert(Entry{
		Slug:        slug,
		QuoteID:     quoteID,
		Variant:     variant,
		DocumentKey: documentKey,
		Created:     now,
		Modified:    now,
	})
	return slug, err
}

// Resolve returns a presigned URL for the document behind the slug. This
// never re-renders anything: a link that was minted years ago costs one
// signature against the same stored object. A cached URL with at least half
// its lifetime left is reused; otherwise a new one is signed and cached
// best-effort.
func (r *Registry) Resolve(slug string) (string, error) {
	e := r.DB.Lookup(slug)
	if e == nil {
		return "", ErrNoLink
	}
	if e.URL != "" && r.now().Add(r.margin()).Before(e.URLExpires) {
		return e.URL, nil
	}
	url, err := r.Store.PresignGet(e.DocumentKey, r.ttl())
	if err != nil {
		return "", err
	}
	r.DB.SaveURL(slug, url, r.now().Add(r.ttl()))
	return url, nil
}

// PurgeForQuote removes every registry entry for the quote and returns how
// many were deleted. It is cleanup, not correctness: failures are logged and
// the count is whatever was actually removed.
func (r *Registry) PurgeForQuote(quoteID string) int {
	var count int
	for _, e := range r.DB.ForQuote(quoteID) {
		err := r.DB.Delete(e.Slug)
		if err != nil {
			log.Println("link purge:", quoteID, e.Slug, err)
			raven.CaptureError(err, map[string]string{"Quote": quoteID, "Slug": e.Slug})
			continue
		}
		count++
	}
	return count
}
