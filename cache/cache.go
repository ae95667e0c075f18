// Package cache implements the per-run memoizing evaluator cache
// (spec component 4.D): a concurrent, atomic check-and-insert table
// keyed by (config, node) or (config, write-descriptor), generalized
// here over any comparable key so the engine package can instantiate
// one table for the execution cache and a second for the write cache
// (spec.md §3, "Evaluator cache").
//
// Modeled on the gopls type-checking futureCache pattern (install a
// cheap placeholder under the lock, then resolve it outside the lock)
// rather than a sync.Map, because every insertion here needs the
// atomic "was this key new" signal that sync.Map's LoadOrStore also
// gives, but our callers additionally want cleanCache-style snapshot
// isolation that a plain sync.Map can't express.
package cache

import "sync"

// Cache is a concurrent (K) -> (V) table supporting atomic
// check-and-insert. The zero value is not usable; construct with New.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]V
}

// New returns an empty Cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{items: make(map[K]V)}
}

// GetOrElseInsertWithFeedback is the canonical insertion (spec.md §4.D).
// If key is present, it returns the stored value and isNew=false.
// Otherwise it installs build()'s result and returns isNew=true. build
// is invoked at most once per key, while the cache's lock is held, so
// build must be cheap — it constructs a placeholder (e.g. a pending
// future) rather than performing the actual work the placeholder will
// eventually hold.
func (c *Cache[K, V]) GetOrElseInsertWithFeedback(key K, build func() V) (isNew bool, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.items[key]; ok {
		return false, v
	}
	v := build()
	c.items[key] = v
	return true, v
}

// GetOrLock is the write coalescer's primitive (spec.md §4.D,
// "getOrLock"). If key is absent, newPlaceholder() is installed and
// owned=true is returned: the caller already holds (from its own call
// to whatever constructed newPlaceholder's value, e.g. a Promise) the
// means to resolve that placeholder, and is now responsible for doing
// so — this is the Go rendering of the spec's Either<Promise, CFuture>:
// the "Left" case is owned=true with the caller's own promise handle
// still in scope, the "Right" case is owned=false with the existing
// value returned for the caller to merely await.
func (c *Cache[K, V]) GetOrLock(key K, newPlaceholder func() V) (value V, owned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.items[key]; ok {
		return v, false
	}
	v := newPlaceholder()
	c.items[key] = v
	return v, true
}

// Clean returns a fresh Cache with no entries, for WithNewCache to
// isolate a sub-tree's memoization from its enclosing scope (spec.md
// §4.D, "cleanCache"). The caller is responsible for sharing whatever
// needs to stay shared (the Writer) outside of this table.
func (c *Cache[K, V]) Clean() *Cache[K, V] {
	return New[K, V]()
}

// Len reports the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
