// Package links is the short-link registry. A link maps a small, stable,
// deterministic slug to the current store key of a quote's rendered document,
// so a quote can be shared as one URL that keeps working while the document
// behind it is regenerated and while its presigned access URLs expire.
//
// The registry is persisted in a database keyed by slug, with a secondary
// lookup path by quote id for purging. A MySQL backend is used in
// production; the QL backend keeps everything in an embedded database and is
// intended for development and testing.
package links

import (
	"log"
	"time"

	"github.com/BurntSushi/migration"
)

// An Entry is one registry row. Created is set when the slug is first seen
// and preserved across upserts; Modified tracks the last document key change.
// URL and URLExpires cache the most recent presigned URL so resolving a
// popular link does not re-sign on every hit. The cache is advisory: an
// empty URL just means the next Resolve signs a fresh one.
type Entry struct {
	Slug        string
	QuoteID     string
	Variant     string
	DocumentKey string
	URL         string
	URLExpires  time.Time
	Created     time.Time
	Modified    time.Time
}

// A LinkDB stores registry entries. Implementations exist for MySQL, for
// the embedded QL database, and in memory.
type LinkDB interface {
	// Lookup returns the entry for the slug, or nil if there is none
	// (or the lookup failed; failures are logged, not returned).
	Lookup(slug string) *Entry

	// ForQuote returns every entry whose quote id matches. Best effort:
	// an error gives a short list, not a failure.
	ForQuote(quoteID string) []Entry

	// Upsert inserts the entry, or, if the slug already exists, updates
	// its document key and modified time while preserving the original
	// created time. Any cached URL is discarded either way.
	Upsert(e Entry) error

	// SaveURL caches a presigned URL for the slug. Best effort.
	SaveURL(slug string, url string, expires time.Time)

	// Delete removes the entry for the slug. Deleting an absent slug is
	// not an error.
	Delete(slug string) error
}

// we need to adapt the migration version functions to work with MySQL and QL.
// This code is slightly modified from github.com/BurntSushi/migration

type dbVersion struct {
	// SQL to get the version of this db, returns one row and one column
	GetSQL string
	// SQL to insert a new version of this db. takes one parameter, the new
	// version
	SetSQL string
	// the SQL to create the version table for this db
	CreateSQL string
}

func (d dbVersion) Get(tx migration.LimitedTx) (int, error) {
	v, err := d.get(tx)
	if err != nil {
		// we assume error means there is no migration table
		log.Println(err.Error())
		return 0, nil
	}
	return v, nil
}

func (d dbVersion) Set(tx migration.LimitedTx, version int) error {
	if err := d.set(tx, version); err != nil {
		if err := d.createTable(tx); err != nil {
			return err
		}
		return d.set(tx, version)
	}
	return nil
}

func (d dbVersion) get(tx migration.LimitedTx) (int, error) {
	var version int
	r := tx.QueryRow(d.GetSQL)
	if err := r.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func (d dbVersion) set(tx migration.LimitedTx, version int) error {
	_, err := tx.Exec(d.SetSQL, version)
	return err
}

func (d dbVersion) createTable(tx migration.LimitedTx) error {
	_, err := tx.Exec(d.CreateSQL)
	if err == nil {
		err = d.set(tx, 0)
	}
	return err
}
