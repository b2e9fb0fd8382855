// Package xhash provides the single hash-mixing function shared by the
// HAMT implementation in package hamt and the weak hash-consing cache in
// package intern.
//
// A raw hash (from maphash, or from a value's own Hash method) clusters
// its entropy unevenly across its 64 bits. Mixing re-distributes that
// entropy before any bitmap-trie dispatch or bucket selection consumes a
// slice of the hash, so that two keys whose raw hashes differ only in
// their high bits don't collide at every shallow trie level.
package xhash

// Mix re-distributes the bits of h by folding its upper half into its
// lower half. The same formula is used by every hamt and intern
// operation on a given key, so the trie and the cache may both assume
// it has already been applied.
func Mix(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// Mix32 is the 32-bit analogue of Mix, starting from the fold
// "hash ^ (hash >> 16)" of the original WeakReferenceFlyweightCache.
// Neither hamt nor intern calls it: both use Mix.
func Mix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
