package hamt

// Set is a persistent, immutable set of K backed by a Map with unit
// values. Its cumulative hash is a running XOR of element hashes,
// since the unit value contributes nothing to a member's hash
// contribution.
type Set[K any] struct {
	m *Map[K, struct{}]
}

func unitHash(struct{}) uint64     { return 0 }
func unitEqual(a, b struct{}) bool { return true }

// NewSet returns the empty set using hasher for elements.
func NewSet[K any](hasher Hasher[K]) *Set[K] {
	return &Set[K]{m: NewMap[K, struct{}](hasher, unitHash, unitEqual)}
}

// Len returns the number of elements.
func (s *Set[K]) Len() uint64 { return s.m.Len() }

// Hash returns the cached cumulative hash.
func (s *Set[K]) Hash() uint64 { return s.m.Hash() }

// Contains reports whether k is a member.
func (s *Set[K]) Contains(k K) bool {
	_, ok := s.m.Get(k)
	return ok
}

// Add returns a new set with k as a member, leaving s unchanged.
func (s *Set[K]) Add(k K) *Set[K] {
	return &Set[K]{m: s.m.Set(k, struct{}{})}
}

// Delete returns a new set with k absent, leaving s unchanged. If k was
// already absent, Delete returns s itself.
func (s *Set[K]) Delete(k K) *Set[K] {
	newM := s.m.Delete(k)
	if newM == s.m {
		return s
	}
	return &Set[K]{m: newM}
}

// Range calls fn for every element in a fixed, implementation-defined
// order. It stops early if fn returns false.
func (s *Set[K]) Range(fn func(k K) bool) {
	s.m.Range(func(k K, _ struct{}) bool { return fn(k) })
}

// Equal reports whether s and other hold the same elements.
func (s *Set[K]) Equal(other *Set[K]) bool {
	if s == other {
		return true
	}
	return s.m.Equal(other.m)
}

// Transient returns a single-writer builder seeded with s's contents.
func (s *Set[K]) Transient() *TransientSet[K] {
	return &TransientSet[K]{m: s.m.Transient()}
}

// TransientSet is a single-writer, mutable builder over a set. Sharing
// a TransientSet across goroutines is undefined behavior.
type TransientSet[K any] struct {
	m *TransientMap[K, struct{}]
}

// Len returns the current number of elements.
func (t *TransientSet[K]) Len() uint64 { return t.m.Len() }

// Contains reports whether k is a member.
func (t *TransientSet[K]) Contains(k K) bool {
	_, ok := t.m.Get(k)
	return ok
}

// Add inserts k in place. It returns ErrFrozen if the builder has
// already been frozen.
func (t *TransientSet[K]) Add(k K) error {
	return t.m.Set(k, struct{}{})
}

// Delete removes k in place, if present. It returns ErrFrozen if the
// builder has already been frozen.
func (t *TransientSet[K]) Delete(k K) error {
	return t.m.Delete(k)
}

// Freeze clears the builder's owner token and returns its contents as
// an immutable Set. Further writes on t fail with ErrFrozen.
func (t *TransientSet[K]) Freeze() *Set[K] {
	return &Set[K]{m: t.m.Freeze()}
}
