package quote

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// This file defines the blob key scheme. The important property is that a
// photo key embeds the owning item's ID, not its list position, so all of an
// item's photos share one prefix for the item's whole life no matter how the
// list is edited or reordered.
//
//     <date>/<owner>/<quote id>/<item id>/<photo name>
//
// The date is the item's creation date. It never changes after that, so the
// prefix is stable. Rendered documents use a separate scheme under "docs/".

// NewItemID generates a fresh item identifier. IDs are random so they are
// never reused, even after the item that held one is deleted.
func NewItemID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// PhotoPrefixFor returns the key prefix all photos of the given item share.
// Call it once when the item is created and keep the result on the item.
func PhotoPrefixFor(created time.Time, owner, quoteID, itemID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/",
		created.UTC().Format("2006-01-02"), owner, quoteID, itemID)
}

// PhotoKey returns the store key for a photo with the given name inside the
// item prefix. Slashes in the name are flattened so a name cannot escape the
// item's prefix.
func PhotoKey(prefix, name string) string {
	return prefix + strings.ReplaceAll(name, "/", "_")
}

// DocumentKey returns the store key for the rendered document of a quote
// variant. The key is a pure function of (owner, quote, variant): a
// regeneration overwrites the previous document in place rather than leaving
// the old one behind. It is not content addressed; only the decision whether
// to regenerate looks at the content hash.
func DocumentKey(owner, quoteID, variant string) string {
	return fmt.Sprintf("docs/%s/%s/quote-%s.pdf", owner, quoteID, variant)
}
