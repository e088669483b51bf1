package store

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Memory implements a simple in-memory version of a store. It is intended
// mainly for testing and local development.
type Memory struct {
	m     sync.RWMutex
	store map[string]memblob
}

type memblob struct {
	data        []byte
	contentType string
}

var (
	// ensure Memory satisfies the Store interface
	_ Store = &Memory{}
)

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string]memblob)}
}

// Put saves a copy of data under the given key.
func (ms *Memory) Put(key string, data []byte, contentType string) error {
	b := memblob{
		data:        append([]byte(nil), data...),
		contentType: contentType,
	}
	ms.m.Lock()
	ms.store[key] = b
	ms.m.Unlock()
	return nil
}

// Open returns a reader over the blob stored under key.
func (ms *Memory) Open(key string) (io.ReadCloser, int64, error) {
	ms.m.RLock()
	b, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok {
		return nil, 0, ErrNotExist
	}
	return ioutil.NopCloser(bytes.NewReader(b.data)), int64(len(b.data)), nil
}

// Stat returns the size of the blob under key, or ErrNotExist.
func (ms *Memory) Stat(key string) (int64, error) {
	ms.m.RLock()
	b, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok {
		return 0, ErrNotExist
	}
	return int64(len(b.data)), nil
}

// Delete the given key from the store. It is not an error if the item does
// not exist in the store.
func (ms *Memory) Delete(key string) error {
	ms.m.Lock()
	delete(ms.store, key)
	ms.m.Unlock()
	return nil
}

// ListPrefix returns all the key entries which begin with the given prefix.
func (ms *Memory) ListPrefix(prefix string) ([]string, error) {
	var result []string
	ms.m.RLock()
	for k := range ms.store {
		if strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	ms.m.RUnlock()
	return result, nil
}

// DeletePrefix removes every key beginning with prefix.
func (ms *Memory) DeletePrefix(prefix string) (int, error) {
	var count int
	ms.m.Lock()
	for k := range ms.store {
		if strings.HasPrefix(k, prefix) {
			delete(ms.store, k)
			count++
		}
	}
	ms.m.Unlock()
	return count, nil
}

// PresignGet returns a fake, but well formed, URL for the given key. The
// expiry is carried as a query parameter so tests can see the ttl that was
// asked for. It is an error to presign a key that does not exist.
func (ms *Memory) PresignGet(key string, ttl time.Duration) (string, error) {
	_, err := ms.Stat(key)
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("memory:///%s?expires=%d", url.PathEscape(key), expires), nil
}

// Dump writes a listing of the contents of the store to the given writer.
// This is intended for testing and debugging.
func (ms *Memory) Dump(w io.Writer) {
	ms.m.RLock()
	for k, v := range ms.store {
		s := v.data
		if len(s) > 300 {
			s = s[:50]
		}
		fmt.Fprintf(w, "%s: %s\n", k, string(s))
	}
	ms.m.RUnlock()
}
