// Package doccache decides whether a quote's rendered document can be reused
// or must be regenerated, and keeps the object store and the short-link
// registry consistent while doing so.
//
// The decision is content addressed: each quote carries, per rendering
// variant, the key of the last rendered document and the content hash it was
// rendered from. A request is a cache hit only when the stored hash matches
// the hash of the quote as it is now AND the stored object still exists.
// Both checks run on every request; stored metadata alone is not trusted,
// because the object can be deleted out from under it.
package doccache

import (
	"log"
	"time"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/quotedoc/links"
	"github.com/ndlib/quotedoc/quote"
	"github.com/ndlib/quotedoc/store"
)

// Result is what a document request produces. URL is a presigned direct link
// to the stored document, good for TTLSeconds. Slug identifies the stable
// short link; it is empty if the link registry was unavailable, which is not
// an error (the document URL still works). Cached tells whether the document
// was reused or freshly rendered.
type Result struct {
	URL        string
	Slug       string
	TTLSeconds int
	Cached     bool
}

// A Controller orchestrates document requests. Set all fields before use.
type Controller struct {
	Records quote.RecordStore
	Store   store.Store
	Render  quote.Renderer
	Links   *links.Registry
	TTL     time.Duration // lifetime of returned URLs, links.DefaultTTL if zero
}

func (c *Controller) ttl() time.Duration {
	if c.TTL == 0 {
		return links.DefaultTTL
	}
	return c.TTL
}

// Document returns a URL for the rendered document of one quote variant,
// rendering and storing it first if the cached copy cannot be used. Setting
// force skips the cache check and always rerenders.
//
// Two concurrent calls for the same (quote, variant) may both see a miss and
// both render. That is accepted: both write the same key with semantically
// identical bytes and both metadata writes record the same hash, so the race
// costs duplicate work, never a wrong document.
func (c *Controller) Document(quoteID, variant string, force bool) (Result, error) {
	q, err := c.Records.Quote(quoteID)
	if err != nil {
		return Result{}, err
	}

	newHash := quote.ContentHash(q)

	if !force {
		info, ok := q.Document(variant)
		if ok && info.Key != "" && info.ContentHash == newHash {
			// metadata says the stored document is current. verify the
			// object is actually there before handing out its URL;
			// Stat reports anything uncertain as absent, which sends
			// us down the regeneration path instead
			_, err := c.Store.Stat(info.Key)
			if err == nil {
				return c.finish(q, variant, info.Key, true)
			}
		}
	}

	data, contentType, err := c.Render.Render(q, variant)
	if err != nil {
		return Result{}, errors.Wrapf(err, "rendering %s/%s", quoteID, variant)
	}

	key := quote.DocumentKey(q.Owner, q.ID, variant)
	err = c.Store.Put(key, data, contentType)
	if err != nil {
		// fatal: without a durable document there is nothing to return,
		// and the metadata must keep pointing at the old state
		return Result{}, errors.Wrapf(err, "storing %s", key)
	}

	err = c.Records.SetDocument(q.ID, variant, quote.DocumentInfo{
		Key:         key,
		ContentHash: newHash,
	})
	if err != nil {
		// the document itself is stored and usable; a lost metadata
		// write only costs a rerender on the next request
		log.Println("document metadata:", quoteID, variant, err)
		raven.CaptureError(err, map[string]string{"Quote": quoteID, "Variant": variant})
	}

	return c.finish(q, variant, key, false)
}

// finish makes sure a short link exists for the document and presigns its
// URL. The registry is best effort; presigning is not, since the URL is the
// whole point of the request.
func (c *Controller) finish(q *quote.Quote, variant, key string, cached bool) (Result, error) {
	slug, err := c.Links.Upsert(q.ID, variant, key)
	if err != nil {
		log.Println("link upsert:", q.ID, variant, err)
		raven.CaptureError(err, map[string]string{"Quote": q.ID, "Variant": variant})
		slug = ""
	}

	url, err := c.Store.PresignGet(key, c.ttl())
	if err != nil {
		return Result{}, errors.Wrapf(err, "presigning %s", key)
	}

	return Result{
		URL:        url,
		Slug:       slug,
		TTLSeconds: int(c.ttl() / time.Second),
		Cached:     cached,
	}, nil
}
