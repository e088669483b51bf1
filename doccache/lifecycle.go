package doccache

import (
	"log"

	raven "github.com/getsentry/raven-go"

	"github.com/ndlib/quotedoc/links"
	"github.com/ndlib/quotedoc/quote"
	"github.com/ndlib/quotedoc/store"
)

// A Lifecycle cleans up the blobs hanging off a quote as the quote is edited
// and deleted: photos of removed items, rendered documents, and short-link
// entries.
//
// Everything here is best effort. The record mutation that triggered the
// cleanup has already been persisted by the caller, so a failed delete must
// not surface as a user-visible error; it is logged and counted instead. The
// report return type makes that contract explicit: callers get numbers, not
// an error to propagate.
type Lifecycle struct {
	Store store.Store
	Links *links.Registry
}

// A CleanupReport says what a cleanup pass actually removed. FirstErr holds
// the first failure encountered, for logging; later failures do not stop the
// remaining work.
type CleanupReport struct {
	PhotosDeleted    int
	DocumentsDeleted int
	LinksDeleted     int
	FirstErr         error
}

func (r *CleanupReport) note(err error) {
	if r.FirstErr == nil {
		r.FirstErr = err
	}
}

// ItemsChanged removes the photos of items that are present in old but not
// in new, matched by item ID. Items that survived the edit keep their photos
// untouched even if they moved or changed, and freshly added items have
// nothing to clean up yet.
func (lc *Lifecycle) ItemsChanged(quoteID string, old, new []quote.Item) CleanupReport {
	var report CleanupReport
	for _, item := range quote.RemovedItems(old, new) {
		if item.PhotoPrefix == "" {
			continue
		}
		n, err := lc.Store.DeletePrefix(item.PhotoPrefix)
		report.PhotosDeleted += n
		if err != nil {
			log.Println("photo cleanup:", quoteID, item.ID, err)
			raven.CaptureError(err, map[string]string{"Quote": quoteID, "Item": item.ID})
			report.note(err)
		}
	}
	return report
}

// QuoteDeleted removes everything stored for the quote: every item's photo
// prefix, every variant's rendered document, and every short-link entry.
// The three groups are independent; a failure in one never blocks the
// others. Deleting the quote record itself is the caller's job.
func (lc *Lifecycle) QuoteDeleted(q *quote.Quote) CleanupReport {
	var report CleanupReport

	for _, item := range q.Items {
		if item.PhotoPrefix == "" {
			continue
		}
		n, err := lc.Store.DeletePrefix(item.PhotoPrefix)
		report.PhotosDeleted += n
		if err != nil {
			log.Println("photo cleanup:", q.ID, item.ID, err)
			raven.CaptureError(err, map[string]string{"Quote": q.ID, "Item": item.ID})
			report.note(err)
		}
	}

	for variant, info := range q.Documents {
		if info.Key == "" {
			continue
		}
		err := lc.Store.Delete(info.Key)
		if err != nil {
			log.Println("document cleanup:", q.ID, variant, err)
			raven.CaptureError(err, map[string]string{"Quote": q.ID, "Variant": variant})
			report.note(err)
			continue
		}
		report.DocumentsDeleted++
	}

	report.LinksDeleted = lc.Links.PurgeForQuote(q.ID)
	return report
}
