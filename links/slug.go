package links

import (
	"crypto/sha256"
	"strings"
)

// Slug length and alphabet. Seven base-62 symbols hold the 40 bits we take
// from the digest.
const (
	slugLength   = 7
	slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Slug returns the short link identifier for the given quote and variant.
//
// It is a pure function: the same (quote, variant) pair always produces the
// same slug, so re-issuing a document reuses the existing link instead of
// minting a new one. That is what makes the registry upsert idempotent.
//
// The slug is the first 40 bits of a SHA-256 digest, base-62 encoded and
// left-padded to a fixed width, then lowercased so links survive
// case-mangling when shared. 40 bits keeps accidental collisions negligible
// for realistic quote counts, but note there is no collision detection: two
// distinct (quote, variant) pairs mapping to the same slug would silently
// share a registry entry. An accepted risk, not a guarantee.
func Slug(quoteID, variant string) string {
	h := sha256.Sum256([]byte(quoteID + "|" + variant))
	v := uint64(h[0])<<32 | uint64(h[1])<<24 | uint64(h[2])<<16 |
		uint64(h[3])<<8 | uint64(h[4])
	var buf [slugLength]byte
	for i := slugLength - 1; i >= 0; i-- {
		buf[i] = slugAlphabet[v%62]
		v /= 62
	}
	return strings.ToLower(string(buf[:]))
}
