package quote

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
)

// ContentHash returns a fingerprint of the content-affecting fields of q as
// a fixed-length hex digest. Two quotes whose rendered documents would be
// identical hash the same; editing any field that shows up in the document
// changes the hash.
//
// The canonical form is written field by field in a fixed order, so the hash
// does not depend on how the record happens to be serialized elsewhere.
// Items are sorted by ID first: reordering the item list is a presentation
// change, not a content change. Photos, workflow status, customer fields,
// and the cache metadata itself are deliberately left out. No salt is mixed
// in; the hash must be reproducible from the record alone.
func ContentHash(q *Quote) string {
	h := sha256.New()
	writeCanonical(h, q)
	return hex.EncodeToString(h.Sum(nil))
}

func writeCanonical(w io.Writer, q *Quote) {
	// Every string is length-prefixed. The separators alone would not be
	// enough: free text can contain the separator bytes themselves, and
	// "ab"+"c" must never produce the same stream as "a"+"bc".
	io.WriteString(w, "quote\x1f")
	writeString(w, q.Intro)
	writeString(w, q.Notes)
	fmt.Fprintf(w, "%d\x1e", q.TotalCents)

	items := make([]Item, len(q.Items))
	copy(items, q.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	for _, item := range items {
		io.WriteString(w, "item\x1f")
		writeString(w, item.ID)
		writeString(w, item.Type)
		writeString(w, item.Description)
		fmt.Fprintf(w, "%d\x1f%d\x1f%d\x1f",
			item.Quantity, item.UnitCents, item.PriceCents)
		for _, tag := range item.RiskTags {
			io.WriteString(w, "tag\x1f")
			writeString(w, tag)
		}
		io.WriteString(w, "\x1e")
	}
}

func writeString(w io.Writer, s string) {
	fmt.Fprintf(w, "%d\x1f%s\x1f", len(s), s)
}
