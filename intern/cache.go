// Package intern implements the concurrent weak-reference hash-consing
// cache: given a freshly constructed candidate value, Intern returns the
// canonical instance structurally equal to it, constructing-and-publishing
// a new canonical instance only when nothing equal is currently live.
//
// The cache never prolongs a candidate's lifetime: a canonical instance
// is reclaimable the moment its last strong reference outside the cache
// goes away, at which point a runtime cleanup callback unlinks its entry
// from the chain it lives in.
//
// Grounded on two sources in combination: the weak.Pointer/zero-value-
// fast-path idiom of rogpeppe-generic/anyunique, and the concurrent
// open-hash algorithm of WeakReferenceFlyweightCache.java (atomic chain
// heads, resize under a writer lock, a cleared-reference queue drained
// opportunistically, a per-entry guard against double-unlinking). The
// Java version locks with a StampedLock and polls a ReferenceQueue; this
// version uses a sync.RWMutex to guard only the table-pointer swap and
// Go's weak/runtime.AddCleanup in place of WeakReference/ReferenceQueue.
package intern

import (
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/hconsed/values/xhash"
)

const (
	initialCapacity = 32
	maxCapacity     = 1 << 30
)

// Hasher defines the hash and equality contract for the pointee type a
// Cache canonicalizes. Hash and Equal must agree: Equal(a, b) implies
// Hash(a) == Hash(b).
type Hasher[T any] interface {
	Hash(x *T) uint64
	Equal(a, b *T) bool
}

// entry is one link in a bucket chain. ref is a weak reference to the
// candidate published through this entry. Entries are recreated on
// every resize (rehashed into the new table's bucket array), so an
// entry's identity does not survive a resize even though the
// candidate it represents may still be live.
type entry[T any] struct {
	hash uint64
	ref  weak.Pointer[T]
	next atomic.Pointer[entry[T]]
	h    *handle[T]
}

// handle is the stable object a candidate's cleanup callback is
// registered against — entry is not, because resizeTo must be able to
// rebuild a live candidate's entry as a new object without losing the
// cleanup's ability to find and unlink it. handle.entry is the
// back-pointer; after insertIfAbsent sets it, only resizeTo changes it,
// under resizeMu's write lock: resizeTo
// re-aims it in place for every still-live entry it rehashes, so a
// cleanup firing after any number of resizes still unlinks whichever
// entry currently represents the candidate. unlinked guards the
// one-time count decrement, now keyed on the handle (stable across
// resizes) rather than on any one ephemeral entry.
type handle[T any] struct {
	entry    atomic.Pointer[entry[T]]
	unlinked atomic.Bool
}

type bucketTable[T any] struct {
	buckets []atomic.Pointer[entry[T]]
}

// Cache canonicalizes values of type *T under hasher's equivalence
// relation. The zero value is not meaningful; use NewCache.
type Cache[T any] struct {
	hasher Hasher[T]

	table atomic.Pointer[bucketTable[T]]
	count atomic.Int64

	// resizeMu guards the table-pointer swap: readers (insert, unlink)
	// take RLock so a resize in progress can't be raced against a CAS
	// on a bucket the new table no longer has room for; resizeTo takes
	// Lock to publish the rebuilt table exclusively.
	resizeMu sync.RWMutex
}

// NewCache returns an empty cache using hasher to canonicalize *T values.
func NewCache[T any](hasher Hasher[T]) *Cache[T] {
	c := &Cache[T]{hasher: hasher}
	c.table.Store(&bucketTable[T]{buckets: make([]atomic.Pointer[entry[T]], initialCapacity)})
	return c
}

// Len returns the cache's best-effort live entry count. It may briefly
// overcount entries whose referent has been collected but not yet
// reclaimed by a cleanup callback or a resize.
func (c *Cache[T]) Len() int64 { return c.count.Load() }

// Intern returns the canonical instance structurally equal to candidate,
// publishing candidate itself as the canonical instance if nothing equal
// is currently live. The caller must not mutate candidate after passing
// it to Intern, whether or not it turns out to be the one retained.
func (c *Cache[T]) Intern(candidate *T) *T {
	hash := c.hasher.Hash(candidate)
	for {
		tbl := c.table.Load()
		bucket := bucketIndex(hash, len(tbl.buckets))
		head := tbl.buckets[bucket].Load()
		if found := c.lookup(candidate, hash, head); found != nil {
			return found
		}
		c.maybeResize()
		if result, retry := c.insertIfAbsent(candidate, hash, tbl, bucket, head); !retry {
			return result
		}
		// The table was swapped out from under us by a concurrent
		// resize; start over against the current table.
	}
}

func (c *Cache[T]) lookup(candidate *T, hash uint64, head *entry[T]) *T {
	for e := head; e != nil; e = e.next.Load() {
		if e.hash != hash {
			continue
		}
		if other := e.ref.Value(); other != nil && c.hasher.Equal(candidate, other) {
			return other
		}
	}
	return nil
}

// insertIfAbsent installs candidate at the head of bucket's chain,
// re-checking for a concurrently-inserted equal candidate whenever the
// observed head moves. retry is true only when the table itself changed
// underneath the loop, in which case the caller restarts from scratch.
func (c *Cache[T]) insertIfAbsent(candidate *T, hash uint64, tbl *bucketTable[T], bucket int, notFoundIn *entry[T]) (result *T, retry bool) {
	h := &handle[T]{}
	e := &entry[T]{hash: hash, ref: weak.Make(candidate), h: h}
	h.entry.Store(e)
	runtime.AddCleanup(candidate, c.onCleared, h)
	for {
		if c.table.Load() != tbl {
			return nil, true
		}
		head := tbl.buckets[bucket].Load()
		if head != notFoundIn {
			if found := c.lookup(candidate, hash, head); found != nil {
				return found, false
			}
			notFoundIn = head
		}
		e.next.Store(head)

		c.resizeMu.RLock()
		ok := c.table.Load() == tbl && tbl.buckets[bucket].CompareAndSwap(head, e)
		c.resizeMu.RUnlock()
		if ok {
			// Only an installed entry gets a cleanup, so the decrement in
			// unlink always matches this increment.
			runtime.AddCleanup(candidate, c.onCleared, h)
			c.count.Add(1)
			return candidate, false
		}
	}
}

// onCleared runs (possibly long after Intern returned, on an arbitrary
// goroutine) once candidate's last strong reference is gone. h.entry
// may have been re-aimed by any number of resizes in the meantime;
// onCleared always unlinks whichever entry h currently points to.
func (c *Cache[T]) onCleared(h *handle[T]) {
	c.unlink(h)
}

// unlink removes h's current entry from the table it is linked into.
// The handle's unlinked flag ensures this runs at most once per
// candidate even if both a cleanup callback and a concurrent resize's
// rebuild try to retire it.
func (c *Cache[T]) unlink(h *handle[T]) {
	if !h.unlinked.CompareAndSwap(false, true) {
		return
	}
	c.resizeMu.RLock()
	defer c.resizeMu.RUnlock()
	e := h.entry.Load()
	tbl := c.table.Load()
	bucket := bucketIndex(e.hash, len(tbl.buckets))
	for {
		head := tbl.buckets[bucket].Load()
		if head == e {
			if tbl.buckets[bucket].CompareAndSwap(e, e.next.Load()) {
				break
			}
			continue
		}
		prev := head
		for prev != nil && prev.next.Load() != e {
			prev = prev.next.Load()
		}
		if prev == nil {
			// e already isn't part of the current table, e.g. a resize
			// rebuilt the chain without it.
			break
		}
		if prev.next.CompareAndSwap(e, e.next.Load()) {
			break
		}
	}
	c.count.Add(-1)
}

// maybeResize grows the table when it is over 80% full or shrinks it
// when it falls under 25% full, matching the thresholds spec.md gives
// for the cache's resize trigger.
func (c *Cache[T]) maybeResize() {
	tbl := c.table.Load()
	n := c.count.Load()
	capacity := len(tbl.buckets)

	if n > int64(capacity)*8/10 && capacity < maxCapacity {
		c.resizeTo(capacity * 2)
		return
	}
	if capacity > initialCapacity && n < int64(capacity)/4 {
		target := nextPow2(int(n))
		if target < initialCapacity {
			target = initialCapacity
		}
		if target < capacity {
			c.resizeTo(target)
		}
	}
}

// resizeTo allocates a new table of the given capacity and rehashes
// every still-live entry into it, re-aiming each entry's handle at the
// freshly built entry so a cleanup firing after this resize (or any
// number of further resizes) still finds and unlinks the right chain
// link. Entries whose referent has already been collected are claimed
// and dropped here instead of being copied forward: there is no live
// candidate left to re-aim a handle at, so the handle is retired in
// place (matching what its own cleanup would eventually do, just run
// early, under resizeMu, by whichever goroutine gets there first).
func (c *Cache[T]) resizeTo(newCap int) {
	c.resizeMu.Lock()
	defer c.resizeMu.Unlock()
	old := c.table.Load()
	if len(old.buckets) == newCap {
		return // another goroutine already resized to this capacity
	}
	newTbl := &bucketTable[T]{buckets: make([]atomic.Pointer[entry[T]], newCap)}
	for i := range old.buckets {
		for e := old.buckets[i].Load(); e != nil; e = e.next.Load() {
			if e.ref.Value() == nil {
				if e.h.unlinked.CompareAndSwap(false, true) {
					c.count.Add(-1)
				}
				continue
			}
			ne := &entry[T]{hash: e.hash, ref: e.ref, h: e.h}
			e.h.entry.Store(ne)
			b := bucketIndex(e.hash, newCap)
			ne.next.Store(newTbl.buckets[b].Load())
			newTbl.buckets[b].Store(ne)
		}
	}
	c.table.Store(newTbl)
}

func bucketIndex(hash uint64, tableLen int) int {
	return int(xhash.Mix(hash) & uint64(tableLen-1))
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	if p < 1 {
		p = 1
	}
	return p
}
