package hamt_test

import (
	"hash/maphash"
	"math/rand/v2"
)

// intHasher hashes ints by mixing them through maphash, giving the
// trie a realistic (non-identity) bit distribution to dispatch on.
type intHasher struct{ seed maphash.Seed }

func (h intHasher) Hash(k int) uint64 {
	var mh maphash.Hash
	mh.SetSeed(h.seed)
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(k >> (8 * i))
	}
	mh.Write(buf[:])
	return mh.Sum64()
}

func (intHasher) Equal(a, b int) bool { return a == b }

func newIntHasher() intHasher { return intHasher{seed: maphash.MakeSeed()} }

// collidingHasher always returns the same hash, forcing every key into
// a single collision node regardless of depth.
type collidingHasher struct{}

func (collidingHasher) Hash(k int) uint64  { return 0xC011CDED }
func (collidingHasher) Equal(a, b int) bool { return a == b }

func intValHash(v int) uint64 { return uint64(v) }
func intValEqual(a, b int) bool { return a == b }

func shuffled(n int, rng *rand.Rand) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	rng.Shuffle(n, func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
