// Package hamt implements the hash-array-mapped trie that backs the
// persistent and transient Map and Set types.
//
// The node family has two variants: a bitmap-indexed branching node
// (32-way, indexed by a 5-bit slice of a mixed key hash) and a
// hash-collision node (a flat leaf holding two or more entries whose
// mixed hashes agree at every level the trie dispatches on). Both
// variants are copy-on-write: an update produces a new node, except when
// the node's owner token matches the caller's transient token, in which
// case the node may be mutated directly.
//
// The branching/collision split and the bitmap packing (payload entries
// at the front of the children array, sub-nodes at the back) follow the
// CHAMP layout; the owner-token mutation discipline is adapted from the
// generation-tagged copy-on-write nodes of a concurrent hash trie, cut
// down to the single-writer transient model this package actually needs.
package hamt

import (
	"math/bits"

	"github.com/hconsed/values/xhash"
)

// maxDepth is the deepest a branching node may go (spec: "maximum
// branching depth is 7", i.e. depths 0..6 inclusive).
const maxDepth = 6

// Hasher defines the hash and equality contract a Map or Set's key type
// must satisfy. Hash and Equal must agree: Equal(a, b) implies
// Hash(a) == Hash(b).
type Hasher[K any] interface {
	Hash(k K) uint64
	Equal(a, b K) bool
}

// Owner is an opaque identity token claimed by a transient builder.
// A node tagged with a non-nil owner may be mutated in place only by
// the holder of that same token (compared by pointer identity); any
// other caller must copy it first.
type Owner struct{ _ byte }

// NewOwner returns a fresh, unique owner token.
func NewOwner() *Owner { return &Owner{} }

// node is implemented by *branchNode[K,V] and *collisionNode[K,V]. A nil
// node of this interface type represents an empty subtree.
type node[K, V any] interface {
	isHamtNode()
}

// branchNode is the bitmap-indexed node. dataMap and nodeMap are
// disjoint; popcount(dataMap) keys/vals entries are packed at the front
// of the logical children array (modeled here as separate keys/vals
// slices for clarity) and popcount(nodeMap) sub-nodes make up the rest.
type branchNode[K, V any] struct {
	owner   *Owner
	dataMap uint32
	nodeMap uint32
	keys    []K
	vals    []V
	subs    []node[K, V]
}

func (*branchNode[K, V]) isHamtNode() {}

// collisionNode holds two or more entries that share mixedHash at every
// level the trie dispatches on.
type collisionNode[K, V any] struct {
	owner     *Owner
	mixedHash uint32
	keys      []K
	vals      []V
}

func (*collisionNode[K, V]) isHamtNode() {}

// indexAt returns the 5-bit slice of hash used at the given depth.
//
// Depths 0..5 take a 5-bit window sliding down from the top of the
// 32-bit mixed hash (window start 27-5*depth); depth 6, where the
// formula would run off the bottom of the word, instead reuses the low
// 5 bits directly. Because the seven windows together cover every bit
// of the hash, two keys whose indices agree at all seven depths are
// guaranteed to share the same 32-bit mixed hash — exactly the
// condition under which a hash-collision node is warranted.
func indexAt(hash uint32, depth uint) uint32 {
	if depth >= maxDepth {
		return hash & 0x1f
	}
	shift := 27 - 5*depth
	return (hash >> shift) & 0x1f
}

func flagFor(hash uint32, depth uint) uint32 {
	return 1 << indexAt(hash, depth)
}

// popBelow returns the dense array position of flag within bitmap: the
// number of set bits in bitmap below flag.
func popBelow(bitmap, flag uint32) int {
	return bits.OnesCount32(bitmap & (flag - 1))
}

func mixedHash[K any](h Hasher[K], k K) uint32 {
	return uint32(xhash.Mix(h.Hash(k)))
}

type owned interface{ ownerOf() *Owner }

func canMutate(owner *Owner, n owned) bool {
	return owner != nil && n.ownerOf() == owner
}

func (b *branchNode[K, V]) ownerOf() *Owner    { return b.owner }
func (c *collisionNode[K, V]) ownerOf() *Owner { return c.owner }

func (b *branchNode[K, V]) clone(owner *Owner) *branchNode[K, V] {
	nb := &branchNode[K, V]{
		owner:   owner,
		dataMap: b.dataMap,
		nodeMap: b.nodeMap,
	}
	if len(b.keys) > 0 {
		nb.keys = append([]K(nil), b.keys...)
		nb.vals = append([]V(nil), b.vals...)
	}
	if len(b.subs) > 0 {
		nb.subs = append([]node[K, V](nil), b.subs...)
	}
	return nb
}

func (c *collisionNode[K, V]) clone(owner *Owner) *collisionNode[K, V] {
	return &collisionNode[K, V]{
		owner:     owner,
		mixedHash: c.mixedHash,
		keys:      append([]K(nil), c.keys...),
		vals:      append([]V(nil), c.vals...),
	}
}

// newPair builds the smallest node holding two distinct entries whose
// mixed hashes are h1 and h2, recursing as deep as needed and falling
// back to a collisionNode once depth is exhausted.
func newPair[K, V any](k1 K, v1 V, h1 uint32, k2 K, v2 V, h2 uint32, depth uint, owner *Owner) node[K, V] {
	if depth > maxDepth {
		return &collisionNode[K, V]{owner: owner, mixedHash: h1, keys: []K{k1, k2}, vals: []V{v1, v2}}
	}
	i1, i2 := indexAt(h1, depth), indexAt(h2, depth)
	if i1 == i2 {
		child := newPair[K, V](k1, v1, h1, k2, v2, h2, depth+1, owner)
		return &branchNode[K, V]{owner: owner, nodeMap: 1 << i1, subs: []node[K, V]{child}}
	}
	bitmap := uint32(1)<<i1 | uint32(1)<<i2
	if i1 < i2 {
		return &branchNode[K, V]{owner: owner, dataMap: bitmap, keys: []K{k1, k2}, vals: []V{v1, v2}}
	}
	return &branchNode[K, V]{owner: owner, dataMap: bitmap, keys: []K{k2, k1}, vals: []V{v2, v1}}
}

// get looks up key in the subtree rooted at n.
func get[K, V any](n node[K, V], h Hasher[K], key K, hash uint32, depth uint) (V, bool) {
	var zero V
	switch t := n.(type) {
	case nil:
		return zero, false
	case *branchNode[K, V]:
		flag := flagFor(hash, depth)
		switch {
		case t.dataMap&flag != 0:
			di := popBelow(t.dataMap, flag)
			if h.Equal(t.keys[di], key) {
				return t.vals[di], true
			}
			return zero, false
		case t.nodeMap&flag != 0:
			ni := popBelow(t.nodeMap, flag)
			return get[K, V](t.subs[ni], h, key, hash, depth+1)
		default:
			return zero, false
		}
	case *collisionNode[K, V]:
		if t.mixedHash != hash {
			return zero, false
		}
		for i, k := range t.keys {
			if h.Equal(k, key) {
				return t.vals[i], true
			}
		}
		return zero, false
	default:
		panic("hamt: unreachable node kind")
	}
}

// insert returns the subtree resulting from setting key to val, along
// with the previous value (if any) so the caller can maintain its
// cached hash. owner, if non-nil, is both the mutation-in-place
// authorization token and the tag newly-allocated nodes are claimed
// under.
func insert[K, V any](n node[K, V], h Hasher[K], key K, val V, hash uint32, depth uint, owner *Owner) (node[K, V], V, bool) {
	var zero V
	switch t := n.(type) {
	case nil:
		return &branchNode[K, V]{owner: owner, dataMap: flagFor(hash, depth), keys: []K{key}, vals: []V{val}}, zero, false
	case *branchNode[K, V]:
		flag := flagFor(hash, depth)
		switch {
		case t.dataMap&flag != 0:
			di := popBelow(t.dataMap, flag)
			exKey := t.keys[di]
			if h.Equal(exKey, key) {
				old := t.vals[di]
				dst := t
				if !canMutate(owner, t) {
					dst = t.clone(owner)
				}
				dst.vals[di] = val
				return dst, old, true
			}
			exVal := t.vals[di]
			exHash := mixedHash(h, exKey)
			child := newPair[K, V](exKey, exVal, exHash, key, val, hash, depth+1, owner)
			dst := t
			if !canMutate(owner, t) {
				dst = t.clone(owner)
			}
			dst.removePayload(di, flag)
			dst.insertSub(flag, child)
			return dst, zero, false
		case t.nodeMap&flag != 0:
			ni := popBelow(t.nodeMap, flag)
			newChild, old, had := insert(t.subs[ni], h, key, val, hash, depth+1, owner)
			dst := t
			if !canMutate(owner, t) {
				dst = t.clone(owner)
			}
			dst.subs[ni] = newChild
			return dst, old, had
		default:
			dst := t
			if !canMutate(owner, t) {
				dst = t.clone(owner)
			}
			dst.insertPayload(flag, key, val)
			return dst, zero, false
		}
	case *collisionNode[K, V]:
		if t.mixedHash != hash {
			// Genuinely different hashes reaching the same slot only
			// happens when a collision node is re-homed at a shallower
			// depth by an internal merge; wrap it as an ordinary
			// sub-node of a fresh branch at this depth.
			branch := newPair[K, V](key, val, hash, t.keys[0], t.vals[0], t.mixedHash, depth, owner).(*branchNode[K, V])
			// newPair only placed the first collision entry; fold in
			// the rest of the collision node's entries one at a time.
			var result node[K, V] = branch
			for i := 1; i < len(t.keys); i++ {
				result, _, _ = insert(result, h, t.keys[i], t.vals[i], t.mixedHash, depth, owner)
			}
			return result, zero, false
		}
		for i, k := range t.keys {
			if h.Equal(k, key) {
				old := t.vals[i]
				dst := t
				if !canMutate(owner, t) {
					dst = t.clone(owner)
				}
				dst.vals[i] = val
				return dst, old, true
			}
		}
		dst := t
		if !canMutate(owner, t) {
			dst = t.clone(owner)
		}
		dst.keys = append(dst.keys, key)
		dst.vals = append(dst.vals, val)
		return dst, zero, false
	default:
		panic("hamt: unreachable node kind")
	}
}

// insertPayload adds a brand-new payload entry at flag's slot (neither
// dataMap nor nodeMap previously had the bit set).
func (b *branchNode[K, V]) insertPayload(flag uint32, key K, val V) {
	di := popBelow(b.dataMap, flag)
	b.keys = insertAt(b.keys, di, key)
	b.vals = insertAt(b.vals, di, val)
	b.dataMap |= flag
}

// removePayload drops the payload entry at dense index di (flag's bit
// must currently be set in dataMap).
func (b *branchNode[K, V]) removePayload(di int, flag uint32) {
	b.keys = removeAt(b.keys, di)
	b.vals = removeAt(b.vals, di)
	b.dataMap &^= flag
}

// insertSub adds a brand-new sub-node entry at flag's slot.
func (b *branchNode[K, V]) insertSub(flag uint32, child node[K, V]) {
	ni := popBelow(b.nodeMap, flag)
	b.subs = insertAt(b.subs, ni, child)
	b.nodeMap |= flag
}

// removeSub drops the sub-node entry at dense index ni.
func (b *branchNode[K, V]) removeSub(ni int, flag uint32) {
	b.subs = removeAt(b.subs, ni)
	b.nodeMap &^= flag
}

// inlineSub replaces a sub-node slot with a single inlined payload
// (used when a removal leaves exactly one entry below).
func (b *branchNode[K, V]) inlineSub(ni int, flag uint32, key K, val V) {
	b.subs = removeAt(b.subs, ni)
	b.nodeMap &^= flag
	di := popBelow(b.dataMap, flag)
	b.keys = insertAt(b.keys, di, key)
	b.vals = insertAt(b.vals, di, val)
	b.dataMap |= flag
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt[T any](s []T, i int) []T {
	copy(s[i:], s[i+1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}

// singlePayload reports whether n is a branch node with exactly one
// payload entry and no sub-nodes, returning that entry. Used by remove
// to decide whether a child can be inlined back into its parent.
func singlePayload[K, V any](n node[K, V]) (k K, v V, ok bool) {
	b, isBranch := n.(*branchNode[K, V])
	if !isBranch {
		return k, v, false
	}
	if len(b.keys) == 1 && len(b.subs) == 0 {
		return b.keys[0], b.vals[0], true
	}
	return k, v, false
}

// remove returns the subtree resulting from deleting key, the removed
// value (if present), and whether it was present.
func remove[K, V any](n node[K, V], h Hasher[K], key K, hash uint32, depth uint, owner *Owner) (node[K, V], V, bool) {
	var zero V
	switch t := n.(type) {
	case nil:
		return n, zero, false
	case *branchNode[K, V]:
		flag := flagFor(hash, depth)
		switch {
		case t.dataMap&flag != 0:
			di := popBelow(t.dataMap, flag)
			if !h.Equal(t.keys[di], key) {
				return n, zero, false
			}
			old := t.vals[di]
			dst := t
			if !canMutate(owner, t) {
				dst = t.clone(owner)
			}
			dst.removePayload(di, flag)
			return dst, old, true
		case t.nodeMap&flag != 0:
			ni := popBelow(t.nodeMap, flag)
			newChild, old, found := remove[K, V](t.subs[ni], h, key, hash, depth+1, owner)
			if !found {
				return n, zero, false
			}
			dst := t
			if !canMutate(owner, t) {
				dst = t.clone(owner)
			}
			if ck, cv, ok := singlePayload[K, V](newChild); ok {
				dst.inlineSub(ni, flag, ck, cv)
			} else {
				dst.subs[ni] = newChild
			}
			return dst, old, true
		default:
			return n, zero, false
		}
	case *collisionNode[K, V]:
		if t.mixedHash != hash {
			return n, zero, false
		}
		for i, k := range t.keys {
			if h.Equal(k, key) {
				old := t.vals[i]
				if len(t.keys) == 2 {
					// One entry remains: re-home it as an inline
					// payload of an empty branch node so the caller
					// can splice it in (mirrors the source trie's
					// practice of re-inserting the survivor into a
					// fresh depth-0 node for the parent to inline).
					keepKey, keepVal := t.keys[1-i], t.vals[1-i]
					solo := &branchNode[K, V]{owner: owner, dataMap: 1, keys: []K{keepKey}, vals: []V{keepVal}}
					return solo, old, true
				}
				dst := t
				if !canMutate(owner, t) {
					dst = t.clone(owner)
				}
				dst.keys = removeAt(dst.keys, i)
				dst.vals = removeAt(dst.vals, i)
				return dst, old, true
			}
		}
		return n, zero, false
	default:
		panic("hamt: unreachable node kind")
	}
}

// equalNodes reports whether a and b are structurally equal: for branch
// nodes, identical bitmaps and positionally-equal children; for
// collision nodes, the same mixed hash and the same multiset of entries.
func equalNodes[K, V any](a, b node[K, V], h Hasher[K], valEqual func(V, V) bool) bool {
	// A root branch emptied by removals holds no entries, like a nil root.
	if e, ok := a.(*branchNode[K, V]); ok && len(e.keys) == 0 && len(e.subs) == 0 {
		a = nil
	}
	if e, ok := b.(*branchNode[K, V]); ok && len(e.keys) == 0 && len(e.subs) == 0 {
		b = nil
	}
	if a == nil && b == nil {
		return true
	}
	ab, aIsBranch := a.(*branchNode[K, V])
	bb, bIsBranch := b.(*branchNode[K, V])
	if aIsBranch && bIsBranch {
		if ab.dataMap != bb.dataMap || ab.nodeMap != bb.nodeMap {
			return false
		}
		for i := range ab.keys {
			if !h.Equal(ab.keys[i], bb.keys[i]) || !valEqual(ab.vals[i], bb.vals[i]) {
				return false
			}
		}
		for i := range ab.subs {
			if !equalNodes(ab.subs[i], bb.subs[i], h, valEqual) {
				return false
			}
		}
		return true
	}
	ac, aIsColl := a.(*collisionNode[K, V])
	bc, bIsColl := b.(*collisionNode[K, V])
	if aIsColl && bIsColl {
		if ac.mixedHash != bc.mixedHash || len(ac.keys) != len(bc.keys) {
			return false
		}
		used := make([]bool, len(bc.keys))
		for i, k := range ac.keys {
			found := false
			for j, k2 := range bc.keys {
				if used[j] {
					continue
				}
				if h.Equal(k, k2) && valEqual(ac.vals[i], bc.vals[j]) {
					used[j] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return false
}

// each invokes fn for every entry reachable from n, in a fixed
// (bitmap/array) traversal order that depends only on the tree's
// structure, making iteration deterministic for a given value.
func each[K, V any](n node[K, V], fn func(K, V) bool) bool {
	switch t := n.(type) {
	case nil:
		return true
	case *branchNode[K, V]:
		for i := range t.keys {
			if !fn(t.keys[i], t.vals[i]) {
				return false
			}
		}
		for _, s := range t.subs {
			if !each(s, fn) {
				return false
			}
		}
		return true
	case *collisionNode[K, V]:
		for i := range t.keys {
			if !fn(t.keys[i], t.vals[i]) {
				return false
			}
		}
		return true
	default:
		panic("hamt: unreachable node kind")
	}
}
