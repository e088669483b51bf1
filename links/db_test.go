package links

import (
	"testing"
	"time"
)

// General tests against a LinkDB interface.
//
// runLinkDBSequence is not in the form TestXxxx since it is intended to be
// called from a test routine that has already created a LinkDB to be tested.
// This lets us run it against the different database backends.

func runLinkDBSequence(t *testing.T, db LinkDB) {
	t0 := time.Date(2020, time.March, 5, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	if e := db.Lookup("aaaaaaa"); e != nil {
		t.Errorf("Lookup on empty db returned %v", e)
	}

	err := db.Upsert(Entry{
		Slug:        "aaaaaaa",
		QuoteID:     "q100",
		Variant:     "en",
		DocumentKey: "key-one",
		Created:     t0,
		Modified:    t0,
	})
	if err != nil {
		t.Fatalf("Upsert: %s", err.Error())
	}

	e := db.Lookup("aaaaaaa")
	if e == nil {
		t.Fatalf("Lookup returned nil after Upsert")
	}
	if e.QuoteID != "q100" || e.Variant != "en" || e.DocumentKey != "key-one" {
		t.Errorf("Lookup returned %+v", e)
	}
	if !e.Created.Equal(t0) {
		t.Errorf("Created is %v, expected %v", e.Created, t0)
	}

	// cache a URL, then upsert a new key. the upsert must discard the URL
	db.SaveURL("aaaaaaa", "https://signed.example.com/1", t0.Add(time.Hour))
	e = db.Lookup("aaaaaaa")
	if e == nil || e.URL != "https://signed.example.com/1" {
		t.Errorf("SaveURL not visible, entry %+v", e)
	}

	err = db.Upsert(Entry{
		Slug:        "aaaaaaa",
		QuoteID:     "q100",
		Variant:     "en",
		DocumentKey: "key-two",
		Created:     t1,
		Modified:    t1,
	})
	if err != nil {
		t.Fatalf("second Upsert: %s", err.Error())
	}
	e = db.Lookup("aaaaaaa")
	if e == nil {
		t.Fatalf("Lookup returned nil after second Upsert")
	}
	if e.DocumentKey != "key-two" {
		t.Errorf("DocumentKey is %s, expected key-two", e.DocumentKey)
	}
	if e.URL != "" {
		t.Errorf("cached URL survived an upsert: %s", e.URL)
	}
	if !e.Created.Equal(t0) {
		t.Errorf("Created changed to %v on upsert", e.Created)
	}
	if !e.Modified.Equal(t1) {
		t.Errorf("Modified is %v, expected %v", e.Modified, t1)
	}

	// second variant for the same quote, plus an unrelated quote
	db.Upsert(Entry{Slug: "bbbbbbb", QuoteID: "q100", Variant: "de",
		DocumentKey: "key-de", Created: t0, Modified: t0})
	db.Upsert(Entry{Slug: "ccccccc", QuoteID: "q200", Variant: "en",
		DocumentKey: "other", Created: t0, Modified: t0})

	if got := db.ForQuote("q100"); len(got) != 2 {
		t.Errorf("ForQuote(q100) returned %d entries, expected 2", len(got))
	}
	if got := db.ForQuote("q999"); len(got) != 0 {
		t.Errorf("ForQuote(q999) returned %v", got)
	}

	if err := db.Delete("aaaaaaa"); err != nil {
		t.Errorf("Delete: %s", err.Error())
	}
	if e := db.Lookup("aaaaaaa"); e != nil {
		t.Errorf("Lookup after Delete returned %+v", e)
	}
	if got := db.ForQuote("q100"); len(got) != 1 {
		t.Errorf("ForQuote(q100) after delete returned %d entries", len(got))
	}

	// deleting something absent is not an error
	if err := db.Delete("zzzzzzz"); err != nil {
		t.Errorf("Delete of absent slug: %s", err.Error())
	}
}

func TestMemoryLinkDB(t *testing.T) {
	runLinkDBSequence(t, NewMemoryLinks())
}
