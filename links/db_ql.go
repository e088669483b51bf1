package links

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/cznic/ql/driver"
)

// This file implements the LinkDB interface using the QL embedded database.
// It is intended to be used in development, or for installations small
// enough not to want a MySQL server.

type qlLinks struct {
	db *sql.DB
}

var _ LinkDB = &qlLinks{}

const qlLinkInit = `
	CREATE TABLE IF NOT EXISTS links (
		slug string,
		quote_id string,
		variant string,
		doc_key string,
		url string,
		url_expires time,
		created time,
		modified time
	);
	CREATE INDEX IF NOT EXISTS linkslug ON links (slug);
	CREATE INDEX IF NOT EXISTS linkquote ON links (quote_id);
`

// NewQlLinks makes a QL backed LinkDB. filename is the name of the file to
// save the database to. The filename "memory" means to keep everything in
// memory.
func NewQlLinks(filename string) (LinkDB, error) {
	var db *sql.DB
	var err error
	if filename == "memory" {
		db, err = sql.Open("ql-mem", "links.db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlLinkInit)
	}
	if err != nil {
		log.Printf("Open QL: %s", err.Error())
		return nil, err
	}
	return &qlLinks{db: db}, nil
}

func (qc *qlLinks) Lookup(slug string) *Entry {
	const dbLookup = `SELECT slug, quote_id, variant, doc_key, url, url_expires, created, modified FROM links WHERE slug == ?1 LIMIT 1`

	var e Entry
	err := qc.db.QueryRow(dbLookup, slug).Scan(
		&e.Slug, &e.QuoteID, &e.Variant, &e.DocumentKey,
		&e.URL, &e.URLExpires, &e.Created, &e.Modified)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("Link DB QL: %s", err.Error())
		}
		return nil
	}
	return &e
}

func (qc *qlLinks) ForQuote(quoteID string) []Entry {
	const query = `SELECT slug, quote_id, variant, doc_key, created, modified FROM links WHERE quote_id == ?1`

	rows, err := qc.db.Query(query, quoteID)
	if err != nil {
		log.Printf("Link DB QL: %s", err.Error())
		return nil
	}
	defer rows.Close()
	var result []Entry
	for rows.Next() {
		var e Entry
		err = rows.Scan(&e.Slug, &e.QuoteID, &e.Variant, &e.DocumentKey,
			&e.Created, &e.Modified)
		if err != nil {
			log.Printf("Link DB QL: %s", err.Error())
			break
		}
		result = append(result, e)
	}
	return result
}

func (qc *qlLinks) Upsert(e Entry) error {
	const dbUpdate = `UPDATE links SET doc_key = ?2, url = "", url_expires = ?3, modified = ?4 WHERE slug == ?1`
	const dbInsert = `INSERT INTO links VALUES (?1, ?2, ?3, ?4, "", ?5, ?6, ?7)`

	result, err := performExec(qc.db, dbUpdate, e.Slug, e.DocumentKey, time.Time{}, e.Modified)
	if err != nil {
		log.Printf("Link DB QL: %s", err.Error())
		return err
	}
	nrows, err := result.RowsAffected()
	if err != nil {
		log.Printf("Link DB QL: %s", err.Error())
		return err
	}
	if nrows == 0 {
		// entry didn't exist. create it
		_, err = performExec(qc.db, dbInsert,
			e.Slug, e.QuoteID, e.Variant, e.DocumentKey,
			time.Time{}, e.Created, e.Modified)
		if err != nil {
			log.Printf("Link DB QL: %s", err.Error())
		}
	}
	return err
}

func (qc *qlLinks) SaveURL(slug string, url string, expires time.Time) {
	const stmt = `UPDATE links SET url = ?2, url_expires = ?3 WHERE slug == ?1`

	_, err := performExec(qc.db, stmt, slug, url, expires)
	if err != nil {
		log.Printf("Link DB QL: %s", err.Error())
	}
}

func (qc *qlLinks) Delete(slug string) error {
	const stmt = `DELETE FROM links WHERE slug == ?1`

	_, err := performExec(qc.db, stmt, slug)
	if err != nil {
		log.Printf("Link DB QL: %s", err.Error())
	}
	return err
}

func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}
