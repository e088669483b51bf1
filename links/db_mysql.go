package links

import (
	"database/sql"
	"log"
	"time"

	// no _ in import mysql since we need mysql.NullTime
	"github.com/BurntSushi/migration"
	"github.com/go-sql-driver/mysql"
)

// This file implements the LinkDB interface using MySQL as the backing
// store.

type msqlLinks struct {
	db *sql.DB
}

var _ LinkDB = &msqlLinks{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

// Adapt the schema versioning for MySQL

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

// NewMysqlLinks connects to a MySQL database and returns a LinkDB backed by
// it, running any pending schema migrations first.
func NewMysqlLinks(dial string) (LinkDB, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		log.Printf("Open Mysql: %s", err.Error())
		return nil, err
	}
	return &msqlLinks{db: db}, nil
}

func (ms *msqlLinks) Lookup(slug string) *Entry {
	const dbLookup = `SELECT slug, quote_id, variant, doc_key, url, url_expires, created, modified FROM links WHERE slug = ? LIMIT 1`

	var e Entry
	var u sql.NullString
	var expires, created, modified mysql.NullTime
	err := ms.db.QueryRow(dbLookup, slug).Scan(
		&e.Slug, &e.QuoteID, &e.Variant, &e.DocumentKey,
		&u, &expires, &created, &modified)
	if err != nil {
		if err != sql.ErrNoRows {
			// some kind of error...treat it as a miss
			log.Printf("Link DB: %s", err.Error())
		}
		return nil
	}
	e.URL = u.String
	if expires.Valid {
		e.URLExpires = expires.Time
	}
	if created.Valid {
		e.Created = created.Time
	}
	if modified.Valid {
		e.Modified = modified.Time
	}
	return &e
}

func (ms *msqlLinks) ForQuote(quoteID string) []Entry {
	const query = `SELECT slug, quote_id, variant, doc_key, created, modified FROM links WHERE quote_id = ?`

	rows, err := ms.db.Query(query, quoteID)
	if err != nil {
		log.Printf("Link DB: %s", err.Error())
		return nil
	}
	defer rows.Close()
	var result []Entry
	for rows.Next() {
		var e Entry
		var created, modified mysql.NullTime
		err = rows.Scan(&e.Slug, &e.QuoteID, &e.Variant, &e.DocumentKey,
			&created, &modified)
		if err != nil {
			log.Printf("Link DB: %s", err.Error())
			break
		}
		if created.Valid {
			e.Created = created.Time
		}
		if modified.Valid {
			e.Modified = modified.Time
		}
		result = append(result, e)
	}
	return result
}

func (ms *msqlLinks) Upsert(e Entry) error {
	const stmt = `INSERT INTO links (slug, quote_id, variant, doc_key, url, url_expires, created, modified)
		VALUES (?, ?, ?, ?, '', NULL, ?, ?)
		ON DUPLICATE KEY UPDATE doc_key=?, url='', url_expires=NULL, modified=?`

	_, err := ms.db.Exec(stmt,
		e.Slug, e.QuoteID, e.Variant, e.DocumentKey, e.Created, e.Modified,
		e.DocumentKey, e.Modified)
	if err != nil {
		log.Printf("Link DB: %s", err.Error())
	}
	return err
}

func (ms *msqlLinks) SaveURL(slug string, url string, expires time.Time) {
	const stmt = `UPDATE links SET url = ?, url_expires = ? WHERE slug = ?`

	_, err := ms.db.Exec(stmt, url, expires, slug)
	if err != nil {
		// cached URL only, the next Resolve will just sign again
		log.Printf("Link DB: %s", err.Error())
	}
}

func (ms *msqlLinks) Delete(slug string) error {
	const stmt = `DELETE FROM links WHERE slug = ?`

	_, err := ms.db.Exec(stmt, slug)
	if err != nil {
		log.Printf("Link DB: %s", err.Error())
	}
	return err
}

// database migrations. each one is a go function. Add them to the
// list mysqlMigrations at top of this file for them to be run.

func mysqlschema1(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS links (
		id int PRIMARY KEY AUTO_INCREMENT,
		slug varchar(32),
		quote_id varchar(255),
		variant varchar(64),
		doc_key text,
		url text,
		url_expires datetime,
		created datetime,
		modified datetime)`,

		`ALTER TABLE links ADD UNIQUE INDEX links_slug (slug)`,

		// purge-by-quote uses this secondary index since the primary
		// key is the opaque slug
		`ALTER TABLE links ADD INDEX links_quote (quote_id)`,
	}
	return execlist(tx, s)
}

// execlist exec's each item in the list, return if there is an error.
// Used to work around mysql driver not handling compound exec statements.
func execlist(tx migration.LimitedTx, stms []string) error {
	var err error
	for _, s := range stms {
		_, err = tx.Exec(s)
		if err != nil {
			break
		}
	}
	return err
}
