// Package cache holds the tile cache tiers and the rules that purge them.
//
// Every tier owns the images it stores. Removing an entry, whether by Set
// replacing it, Delete, a purge rule or capacity pressure, disposes the
// image in the same critical section, so an evicted tile can never be
// read again through the tier.
package cache

import (
	"sync"

	"tilescope/pkg/tile"
)

// Policy picks the victim when a bounded tier is full.
type Policy[K comparable] struct {
	distance func(a, b K) float64
}

// LRU evicts the least recently used entry.
func LRU[K comparable]() Policy[K] {
	return Policy[K]{}
}

// Distance evicts the entry farthest from the key being inserted. Ties go
// to the least recently used entry.
func Distance[K comparable](fn func(a, b K) float64) Policy[K] {
	return Policy[K]{distance: fn}
}

// Tier maps structured keys to owned tile images.
//
// Tier is safe for concurrent use.
// Tier must not be copied after creation (has mutex).
type Tier[K comparable] struct {
	mu       sync.Mutex
	entries  map[K]*entry
	capacity int
	policy   Policy[K]
	tick     int64 // monotonic access counter

	hits      uint64
	misses    uint64
	evictions uint64
}

type entry struct {
	img   *tile.Image
	atime int64
}

// NewTier creates an unbounded tier.
func NewTier[K comparable]() *Tier[K] {
	return NewBounded(0, LRU[K]())
}

// NewBounded creates a tier holding at most capacity entries. A capacity of
// 0 means unbounded.
func NewBounded[K comparable](capacity int, policy Policy[K]) *Tier[K] {
	return &Tier[K]{
		entries:  make(map[K]*entry),
		capacity: max(capacity, 0),
		policy:   policy,
	}
}

// Get returns the image stored under key and marks it recently used.
func (t *Tier[K]) Get(key K) (*tile.Image, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		t.misses++
		return nil, false
	}
	t.hits++
	t.tick++
	e.atime = t.tick
	return e.img, true
}

// Peek returns the image stored under key without touching recency or
// statistics.
func (t *Tier[K]) Peek(key K) (*tile.Image, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return e.img, true
}

// Contains reports whether key is present.
func (t *Tier[K]) Contains(key K) bool {
	_, ok := t.Peek(key)
	return ok
}

// Set stores img under key and takes ownership of it. A previous image
// under the same key is disposed. When the tier is full one entry is
// evicted first according to the policy.
func (t *Tier[K]) Set(key K, img *tile.Image) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tick++
	if e, ok := t.entries[key]; ok {
		if e.img != img {
			e.img.Dispose()
		}
		e.img = img
		e.atime = t.tick
		return
	}

	if t.capacity > 0 && len(t.entries) >= t.capacity {
		t.evictOne(key)
	}
	t.entries[key] = &entry{img: img, atime: t.tick}
}

// evictOne removes the policy's victim for an insertion of key.
// Caller must hold t.mu.
func (t *Tier[K]) evictOne(inserting K) {
	var (
		victim    K
		found     bool
		bestDist  float64
		bestAtime int64
	)
	for k, e := range t.entries {
		var d float64
		if t.policy.distance != nil {
			d = t.policy.distance(k, inserting)
		}
		if !found || d > bestDist || (d == bestDist && e.atime < bestAtime) {
			victim, bestDist, bestAtime, found = k, d, e.atime, true
		}
	}
	if found {
		t.removeLocked(victim)
		t.evictions++
	}
}

func (t *Tier[K]) removeLocked(key K) {
	if e, ok := t.entries[key]; ok {
		e.img.Dispose()
		delete(t.entries, key)
	}
}

// Delete removes and disposes the entry under key. It reports whether the
// entry existed.
func (t *Tier[K]) Delete(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[key]; !ok {
		return false
	}
	t.removeLocked(key)
	return true
}

// DeleteFunc removes and disposes every entry whose key satisfies del and
// returns how many were removed.
func (t *Tier[K]) DeleteFunc(del func(K) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for k, e := range t.entries {
		if del(k) {
			e.img.Dispose()
			delete(t.entries, k)
			n++
		}
	}
	t.evictions += uint64(n)
	return n
}

// Clear disposes every entry and returns how many there were.
func (t *Tier[K]) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.entries)
	for _, e := range t.entries {
		e.img.Dispose()
	}
	t.entries = make(map[K]*entry)
	t.tick = 0
	return n
}

// Keys returns a snapshot of the stored keys in no particular order.
func (t *Tier[K]) Keys() []K {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]K, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (t *Tier[K]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Capacity returns the entry limit, or 0 when unbounded.
func (t *Tier[K]) Capacity() int {
	return t.capacity
}

// Stats returns a snapshot of the tier counters.
func (t *Tier[K]) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Stats{
		Len:       len(t.entries),
		Capacity:  t.capacity,
		Hits:      t.hits,
		Misses:    t.misses,
		Evictions: t.evictions,
	}
	if total := t.hits + t.misses; total > 0 {
		s.HitRate = float64(t.hits) / float64(total)
	}
	return s
}

// Stats contains tier statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the entry limit, 0 when unbounded.
	Capacity int
	// Hits and Misses count Get lookups.
	Hits   uint64
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 before any lookup.
	HitRate float64
	// Evictions counts entries removed by capacity pressure or purge rules.
	Evictions uint64
}
