package value

import (
	"hash/maphash"
	"sort"
	"strings"

	"github.com/hconsed/values/hamt"
	"github.com/hconsed/values/intern"
)

// valueHasher adapts Value's own Hash/Equal methods to the hamt.Hasher
// contract, so every hamt-backed container keys and hashes its Values
// exactly as the Value interface itself defines structural equality.
type valueHasher struct{}

func (valueHasher) Hash(v Value) uint64   { return v.Hash() }
func (valueHasher) Equal(a, b Value) bool { return a.Equal(b) }

func valHash(v Value) uint64       { return v.Hash() }
func valEqual(a, b Value) bool     { return a.Equal(b) }

// --- List ---------------------------------------------------------

type listBody struct{ elems []Value }

type listHasher struct{}

func (listHasher) Hash(x *listBody) uint64 {
	return hashWith(KindList, func(h *maphash.Hash) {
		for _, e := range x.elems {
			maphash.WriteComparable(h, e.Hash())
		}
	})
}
func (listHasher) Equal(a, b *listBody) bool {
	if len(a.elems) != len(b.elems) {
		return false
	}
	for i := range a.elems {
		if !a.elems[i].Equal(b.elems[i]) {
			return false
		}
	}
	return true
}

var listCache = intern.NewCache[listBody](listHasher{})

// List is an ordered, immutable sequence of values.
type List struct{ body *listBody }

// NewList returns the canonical List holding elems, in order. It
// copies elems, so the caller may reuse the slice afterward.
func NewList(elems ...Value) List {
	cp := append([]Value(nil), elems...)
	return List{listCache.Intern(&listBody{elems: cp})}
}

// Len returns the number of elements.
func (l List) Len() int { return len(l.body.elems) }

// At returns the element at index i.
func (l List) At(i int) Value { return l.body.elems[i] }

// Elems returns the list's elements. The caller must not mutate the
// returned slice.
func (l List) Elems() []Value { return l.body.elems }

func (l List) Hash() uint64 { return listHasher{}.Hash(l.body) }
func (l List) Equal(other Value) bool {
	o, ok := other.(List)
	return ok && listHasher{}.Equal(l.body, o.body)
}
func (l List) Print(b *strings.Builder) {
	b.WriteByte('[')
	for i, e := range l.body.elems {
		if i > 0 {
			b.WriteByte(',')
		}
		e.Print(b)
	}
	b.WriteByte(']')
}
func (l List) TypeOf() Type { return Type{Kind: KindList} }

// --- Tuple ---------------------------------------------------------

type tupleBody struct{ elems []Value }

type tupleHasher struct{}

func (tupleHasher) Hash(x *tupleBody) uint64 {
	return hashWith(KindTuple, func(h *maphash.Hash) {
		for _, e := range x.elems {
			maphash.WriteComparable(h, e.Hash())
		}
	})
}
func (tupleHasher) Equal(a, b *tupleBody) bool {
	if len(a.elems) != len(b.elems) {
		return false
	}
	for i := range a.elems {
		if !a.elems[i].Equal(b.elems[i]) {
			return false
		}
	}
	return true
}

var tupleCache = intern.NewCache[tupleBody](tupleHasher{})

// Tuple is a fixed-arity, ordered sequence of values.
type Tuple struct{ body *tupleBody }

// NewTuple returns the canonical Tuple holding elems, in order.
func NewTuple(elems ...Value) Tuple {
	cp := append([]Value(nil), elems...)
	return Tuple{tupleCache.Intern(&tupleBody{elems: cp})}
}

// Arity returns the number of elements.
func (t Tuple) Arity() int { return len(t.body.elems) }

// At returns the element at index i.
func (t Tuple) At(i int) Value { return t.body.elems[i] }

func (t Tuple) Hash() uint64 { return tupleHasher{}.Hash(t.body) }
func (t Tuple) Equal(other Value) bool {
	o, ok := other.(Tuple)
	return ok && tupleHasher{}.Equal(t.body, o.body)
}
func (t Tuple) Print(b *strings.Builder) {
	b.WriteByte('<')
	for i, e := range t.body.elems {
		if i > 0 {
			b.WriteByte(',')
		}
		e.Print(b)
	}
	b.WriteByte('>')
}
func (t Tuple) TypeOf() Type { return Type{Kind: KindTuple} }

// --- Set ---------------------------------------------------------

// Set is an unordered, immutable collection of distinct values, backed
// by a persistent HAMT set.
type Set struct{ set *hamt.Set[Value] }

// NewSet returns the Set containing elems, deduplicated under
// structural equality.
func NewSet(elems ...Value) Set {
	s := hamt.NewSet[Value](valueHasher{})
	for _, e := range elems {
		s = s.Add(e)
	}
	return Set{set: s}
}

// Len returns the number of elements.
func (s Set) Len() int { return int(s.set.Len()) }

// Contains reports whether v is a member.
func (s Set) Contains(v Value) bool { return s.set.Contains(v) }

// Add returns a new Set with v added.
func (s Set) Add(v Value) Set { return Set{set: s.set.Add(v)} }

// Range calls fn for every element, stopping early if fn returns false.
func (s Set) Range(fn func(Value) bool) { s.set.Range(fn) }

func (s Set) Hash() uint64 { return s.set.Hash() }
func (s Set) Equal(other Value) bool {
	o, ok := other.(Set)
	return ok && s.set.Equal(o.set)
}

// Print prints s's elements ordered by their own printed form, a
// canonical tiebreaker independent of insertion history. A hamt
// hash-collision node visits its entries in insertion order, so
// without this, two structurally-equal Sets built by inserting
// colliding elements in a different order would print differently,
// breaking the writer's determinism contract.
func (s Set) Print(b *strings.Builder) {
	b.WriteByte('{')
	for i, v := range sortedByPrint(elemsOf(s)) {
		if i > 0 {
			b.WriteByte(',')
		}
		v.Print(b)
	}
	b.WriteByte('}')
}

func elemsOf(s Set) []Value {
	elems := make([]Value, 0, s.Len())
	s.Range(func(v Value) bool {
		elems = append(elems, v)
		return true
	})
	return elems
}

func sortedByPrint(vs []Value) []Value {
	sort.Slice(vs, func(i, j int) bool { return printString(vs[i]) < printString(vs[j]) })
	return vs
}

func printString(v Value) string {
	var b strings.Builder
	v.Print(&b)
	return b.String()
}

func (s Set) TypeOf() Type { return Type{Kind: KindSet} }

// --- Map ---------------------------------------------------------

// Map is an unordered, immutable association from Value to Value,
// backed by a persistent HAMT map.
type Map struct{ m *hamt.Map[Value, Value] }

// mapEntry pairs a key and value for sorting purposes only.
type mapEntry struct{ key, val Value }

// NewMap returns the empty Map.
func NewMap() Map {
	return Map{m: hamt.NewMap[Value, Value](valueHasher{}, valHash, valEqual)}
}

// Len returns the number of entries.
func (m Map) Len() int { return int(m.m.Len()) }

// Get returns the value bound to key, if any.
func (m Map) Get(key Value) (Value, bool) { return m.m.Get(key) }

// Set returns a new Map with key bound to val.
func (m Map) Set(key, val Value) Map { return Map{m: m.m.Set(key, val)} }

// Range calls fn for every entry, stopping early if fn returns false.
func (m Map) Range(fn func(key, val Value) bool) { m.m.Range(fn) }

func (m Map) Hash() uint64 { return m.m.Hash() }
func (m Map) Equal(other Value) bool {
	o, ok := other.(Map)
	return ok && m.m.Equal(o.m)
}

// Print prints m's entries ordered by the key's own printed form, for
// the same reason Set.Print sorts: hash-collision node traversal order
// depends on insertion history, and the writer must not.
func (m Map) Print(b *strings.Builder) {
	b.WriteByte('(')
	entries := make([]mapEntry, 0, m.Len())
	m.Range(func(k, v Value) bool {
		entries = append(entries, mapEntry{k, v})
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		return printString(entries[i].key) < printString(entries[j].key)
	})
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		e.key.Print(b)
		b.WriteByte(':')
		e.val.Print(b)
	}
	b.WriteByte(')')
}
func (m Map) TypeOf() Type { return Type{Kind: KindMap} }
