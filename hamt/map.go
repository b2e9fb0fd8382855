package hamt

// Map is a persistent, immutable map from K to V backed by a
// hash-array-mapped trie. The zero value is not meaningful; use NewMap.
//
// A Map caches its size and a running XOR of per-entry hash
// contributions (keyHash ^ valueHash), so Len and Hash are O(1) and
// equality can usually be decided without walking the trie at all.
type Map[K, V any] struct {
	hasher   Hasher[K]
	valHash  func(V) uint64
	valEqual func(a, b V) bool
	root     node[K, V]
	size     uint64
	hash     uint64
}

// NewMap returns the empty map using hasher for keys, valHash for the
// value side of the cached-hash contribution, and valEqual for value
// comparison during structural equality.
func NewMap[K, V any](hasher Hasher[K], valHash func(V) uint64, valEqual func(a, b V) bool) *Map[K, V] {
	return &Map[K, V]{hasher: hasher, valHash: valHash, valEqual: valEqual}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() uint64 { return m.size }

// Hash returns the cached cumulative hash.
func (m *Map[K, V]) Hash() uint64 { return m.hash }

// Get returns the value stored for key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return get[K, V](m.root, m.hasher, key, mixedHash(m.hasher, key), 0)
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Set returns a new map with key bound to val, leaving m unchanged.
// Setting a key to an already-equal value still returns a distinct Map
// value but one that is structurally equal to m.
func (m *Map[K, V]) Set(key K, val V) *Map[K, V] {
	hash := mixedHash(m.hasher, key)
	newRoot, old, had := insert(m.root, m.hasher, key, val, hash, 0, nil)
	nm := &Map[K, V]{hasher: m.hasher, valHash: m.valHash, valEqual: m.valEqual, root: newRoot}
	contribution := m.hasher.Hash(key) ^ m.valHash(val)
	if had {
		nm.size = m.size
		nm.hash = m.hash ^ (m.hasher.Hash(key) ^ m.valHash(old)) ^ contribution
	} else {
		nm.size = m.size + 1
		nm.hash = m.hash ^ contribution
	}
	return nm
}

// Delete returns a new map with key absent, leaving m unchanged. If key
// was already absent, Delete returns m itself.
func (m *Map[K, V]) Delete(key K) *Map[K, V] {
	hash := mixedHash(m.hasher, key)
	newRoot, old, found := remove[K, V](m.root, m.hasher, key, hash, 0, nil)
	if !found {
		return m
	}
	return &Map[K, V]{
		hasher:   m.hasher,
		valHash:  m.valHash,
		valEqual: m.valEqual,
		root:     newRoot,
		size:     m.size - 1,
		hash:     m.hash ^ (m.hasher.Hash(key) ^ m.valHash(old)),
	}
}

// Range calls fn for every entry in a fixed, implementation-defined
// order that depends only on the trie's structure. It stops early if fn
// returns false.
func (m *Map[K, V]) Range(fn func(key K, val V) bool) {
	each(m.root, fn)
}

// Equal reports whether m and other hold the same key/value entries
// under the map's key and value equality. The size and cached-hash
// fast path avoids a full structural walk whenever the maps differ.
func (m *Map[K, V]) Equal(other *Map[K, V]) bool {
	if m == other {
		return true
	}
	if m.size != other.size || m.hash != other.hash {
		return false
	}
	return equalNodes(m.root, other.root, m.hasher, m.valEqual)
}

// Transient returns a single-writer builder seeded with m's contents.
// The builder may mutate nodes it creates in place; nodes still shared
// with m are copied on first write.
func (m *Map[K, V]) Transient() *TransientMap[K, V] {
	return &TransientMap[K, V]{
		owner:    NewOwner(),
		hasher:   m.hasher,
		valHash:  m.valHash,
		valEqual: m.valEqual,
		root:     m.root,
		size:     m.size,
		hash:     m.hash,
	}
}

// TransientMap is a single-writer, mutable builder over a map. Sharing
// a TransientMap across goroutines is undefined behavior. Freeze
// publishes the built contents as an immutable Map and disables further
// writes on the builder.
type TransientMap[K, V any] struct {
	owner    *Owner
	hasher   Hasher[K]
	valHash  func(V) uint64
	valEqual func(a, b V) bool
	root     node[K, V]
	size     uint64
	hash     uint64
}

// Len returns the current number of entries.
func (t *TransientMap[K, V]) Len() uint64 { return t.size }

// Get returns the value stored for key, if any.
func (t *TransientMap[K, V]) Get(key K) (V, bool) {
	return get[K, V](t.root, t.hasher, key, mixedHash(t.hasher, key), 0)
}

// Set binds key to val in place. It returns ErrFrozen if the builder
// has already been frozen.
func (t *TransientMap[K, V]) Set(key K, val V) error {
	if t.owner == nil {
		return ErrFrozen
	}
	hash := mixedHash(t.hasher, key)
	newRoot, old, had := insert(t.root, t.hasher, key, val, hash, 0, t.owner)
	t.root = newRoot
	contribution := t.hasher.Hash(key) ^ t.valHash(val)
	if had {
		t.hash ^= (t.hasher.Hash(key) ^ t.valHash(old)) ^ contribution
	} else {
		t.size++
		t.hash ^= contribution
	}
	return nil
}

// Delete removes key in place, if present. It returns ErrFrozen if the
// builder has already been frozen.
func (t *TransientMap[K, V]) Delete(key K) error {
	if t.owner == nil {
		return ErrFrozen
	}
	hash := mixedHash(t.hasher, key)
	newRoot, old, found := remove[K, V](t.root, t.hasher, key, hash, 0, t.owner)
	if !found {
		return nil
	}
	t.root = newRoot
	t.size--
	t.hash ^= t.hasher.Hash(key) ^ t.valHash(old)
	return nil
}

// Freeze clears the builder's owner token and returns its contents as
// an immutable Map. Further writes on t fail with ErrFrozen.
func (t *TransientMap[K, V]) Freeze() *Map[K, V] {
	m := &Map[K, V]{
		hasher:   t.hasher,
		valHash:  t.valHash,
		valEqual: t.valEqual,
		root:     t.root,
		size:     t.size,
		hash:     t.hash,
	}
	t.owner = nil
	t.root = nil
	return m
}
