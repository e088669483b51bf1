package store

// The S3 store needs to remember a little remote state in memory to cut down
// on repeated HEAD requests. This file implements that cache.
//
// Only negative answers are kept. Caching a positive answer would let a
// document that was deleted out-of-band look present, and the cache
// controller would then hand out a URL to nothing. Caching a negative answer
// is harmless in comparison: the worst case is an extra regeneration.

import (
	"sync"
	"time"
)

// A misscache remembers keys recently determined not to exist. Entries age
// out so an object created by another writer is eventually noticed.
type misscache struct {
	m         sync.Mutex // protects everything below
	cache     map[string]time.Time
	sweeptime time.Time // next time to age everything
}

const missTTL = 5 * time.Minute

func newMissCache() *misscache {
	return &misscache{cache: make(map[string]time.Time)}
}

// Missing returns true if key was recently determined to not exist.
func (mc *misscache) Missing(key string) bool {
	mc.m.Lock()
	defer mc.m.Unlock()
	if time.Now().After(mc.sweeptime) {
		go mc.age()
	}
	expire, ok := mc.cache[key]
	if !ok {
		return false
	}
	if time.Now().After(expire) {
		delete(mc.cache, key)
		return false
	}
	return true
}

// Add marks key as not existing.
func (mc *misscache) Add(key string) {
	mc.m.Lock()
	mc.cache[key] = time.Now().Add(missTTL)
	mc.m.Unlock()
}

// Forget removes any record for key. Called after a Put, when the key
// definitely exists.
func (mc *misscache) Forget(key string) {
	mc.m.Lock()
	delete(mc.cache, key)
	mc.m.Unlock()
}

// age removes expired entries. It holds m the entire time.
func (mc *misscache) age() {
	mc.m.Lock()
	defer mc.m.Unlock()
	now := time.Now()
	mc.sweeptime = now.Add(time.Hour) // next sweep in an hour
	for k, v := range mc.cache {
		if now.After(v) {
			delete(mc.cache, k)
		}
	}
}
