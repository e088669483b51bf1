// Package store provides a simple, goroutine safe key-value blob interface
// over an object store. Keys are path-structured strings, values are byte
// blobs with a content type. The interface carries just the operations the
// document cache and the photo lifecycle need: whole-object put, existence
// check, open, delete, prefix listing, prefix deletion, and presigned GET
// URLs.
//
// The S3 implementation is the one used in production. Memory is for testing
// and development.
package store

import (
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned by Stat and Open when there is no object stored
// under the given key.
var ErrNotExist = errors.New("key does not exist")

// Store is the blob interface backing both rendered documents and item
// photos.
//
// Put must be durable when it returns nil; its errors are the only store
// errors callers treat as fatal. Delete and DeletePrefix are best-effort
// cleanup: implementations log failures and return them, and callers are
// free to ignore them.
type Store interface {
	// Put stores data under key with the given content type, overwriting
	// any previous object.
	Put(key string, data []byte, contentType string) error

	// Open returns a reader for the object and its size.
	Open(key string) (io.ReadCloser, int64, error)

	// Stat returns the size of the object, or ErrNotExist. Implementations
	// map errors other than a definite "found" answer to ErrNotExist, so a
	// failed existence check reads as a cache miss rather than a dangling
	// hit.
	Stat(key string) (int64, error)

	// Delete removes the object. Deleting a key that does not exist is not
	// an error.
	Delete(key string) error

	// ListPrefix returns all keys beginning with prefix.
	ListPrefix(prefix string) ([]string, error)

	// DeletePrefix removes every object whose key begins with prefix and
	// returns how many were removed. Partial failure still removes what it
	// can.
	DeletePrefix(prefix string) (int, error)

	// PresignGet returns a time-limited URL granting direct read access to
	// the object. The URL is valid for roughly ttl.
	PresignGet(key string, ttl time.Duration) (string, error)
}
