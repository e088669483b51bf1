package store

import (
	"io"
	"strings"
	"time"
)

// NewWithPrefix wraps the store s by one which will prefix all its keys by
// prefix. This provides a way to namespace the keys, and to share the same
// underlying store among a group of users (for example, documents and photos
// in one bucket).
func NewWithPrefix(s Store, prefix string) Store {
	return prefixstore{s: s, p: prefix}
}

type prefixstore struct {
	s Store  // the store being wrapped
	p string // the prefix for our keys
}

func (ps prefixstore) Put(key string, data []byte, contentType string) error {
	return ps.s.Put(ps.p+key, data, contentType)
}

func (ps prefixstore) Open(key string) (io.ReadCloser, int64, error) {
	return ps.s.Open(ps.p + key)
}

func (ps prefixstore) Stat(key string) (int64, error) {
	return ps.s.Stat(ps.p + key)
}

func (ps prefixstore) Delete(key string) error {
	return ps.s.Delete(ps.p + key)
}

func (ps prefixstore) ListPrefix(prefix string) ([]string, error) {
	var plen = len(ps.p)
	var result []string
	keys, err := ps.s.ListPrefix(ps.p + prefix)
	for _, key := range keys {
		if strings.HasPrefix(key, ps.p) {
			result = append(result, key[plen:])
		}
	}
	return result, err
}

func (ps prefixstore) DeletePrefix(prefix string) (int, error) {
	return ps.s.DeletePrefix(ps.p + prefix)
}

func (ps prefixstore) PresignGet(key string, ttl time.Duration) (string, error) {
	return ps.s.PresignGet(ps.p+key, ttl)
}
