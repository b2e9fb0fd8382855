package value

import (
	"hash/maphash"
	"sort"
	"strings"

	"github.com/hconsed/values/hamt"
	"github.com/hconsed/values/intern"
)

// stringKeyHasher is the hamt.Hasher used for a Node/Constructor's
// keyword-parameter map, whose keys are plain Go strings.
type stringKeyHasher struct{}

func (stringKeyHasher) Hash(s string) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteString(s)
	return h.Sum64()
}
func (stringKeyHasher) Equal(a, b string) bool { return a == b }

func newKeywordMap() *hamt.Map[string, Value] {
	return hamt.NewMap[string, Value](stringKeyHasher{}, valHash, valEqual)
}

// nodeBody is the shared representation for both Node and Constructor:
// an identifier, positional children, and keyword parameters. The
// intern cache for nodeBody deduplicates on the *full* identity
// (name, positional children, and keyword parameters); Value.Equal,
// by contrast, ignores keyword parameters per spec.md §4.5's exact-bit
// contract note, so two nodes differing only in keyword values compare
// equal even though they remain distinct canonical instances.
type nodeBody struct {
	isConstructor bool
	name          string
	children      []Value
	keyword       *hamt.Map[string, Value]
}

type nodeIdentityHasher struct{}

func (nodeIdentityHasher) Hash(x *nodeBody) uint64 {
	return hashWith(identityKind(x), func(h *maphash.Hash) {
		h.WriteString(x.name)
		for _, c := range x.children {
			maphash.WriteComparable(h, c.Hash())
		}
		x.keyword.Range(func(k string, v Value) bool {
			h.WriteString(k)
			maphash.WriteComparable(h, v.Hash())
			return true
		})
	})
}
func (nodeIdentityHasher) Equal(a, b *nodeBody) bool {
	if a.isConstructor != b.isConstructor || a.name != b.name || len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !a.children[i].Equal(b.children[i]) {
			return false
		}
	}
	return a.keyword.Equal(b.keyword)
}

func identityKind(x *nodeBody) Kind {
	if x.isConstructor {
		return KindConstructor
	}
	return KindNode
}

var nodeCache = intern.NewCache[nodeBody](nodeIdentityHasher{})

// structuralHash and structuralEqual implement the public Value
// contract for both Node and Constructor: they consider the name and
// positional children only, deliberately ignoring keyword parameters.
func structuralHash(x *nodeBody) uint64 {
	return hashWith(identityKind(x), func(h *maphash.Hash) {
		h.WriteString(x.name)
		for _, c := range x.children {
			maphash.WriteComparable(h, c.Hash())
		}
	})
}
func structuralEqual(a, b *nodeBody) bool {
	if a.isConstructor != b.isConstructor || a.name != b.name || len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !a.children[i].Equal(b.children[i]) {
			return false
		}
	}
	return true
}

// Node is an identifier applied to positional children and optional
// keyword parameters.
type Node struct{ body *nodeBody }

// NewNode returns the canonical Node for name applied to children,
// with keyword carrying its keyword parameters (may be nil).
func NewNode(name string, children []Value, keyword map[string]Value) Node {
	return Node{nodeCache.Intern(buildNodeBody(false, name, children, keyword))}
}

func buildNodeBody(isConstructor bool, name string, children []Value, keyword map[string]Value) *nodeBody {
	kw := newKeywordMap().Transient()
	for k, v := range keyword {
		_ = kw.Set(k, v)
	}
	return &nodeBody{
		isConstructor: isConstructor,
		name:          name,
		children:      append([]Value(nil), children...),
		keyword:       kw.Freeze(),
	}
}

// Name returns the node's identifier.
func (n Node) Name() string { return n.body.name }

// Children returns the node's positional children. The caller must
// not mutate the returned slice.
func (n Node) Children() []Value { return n.body.children }

// Keyword returns the value bound to the given keyword parameter, if
// any.
func (n Node) Keyword(name string) (Value, bool) { return n.body.keyword.Get(name) }

func (n Node) Hash() uint64 { return structuralHash(n.body) }
func (n Node) Equal(other Value) bool {
	o, ok := other.(Node)
	return ok && structuralEqual(n.body, o.body)
}

func (n Node) Print(b *strings.Builder) { printNodeBody(n.body, b) }
func (n Node) TypeOf() Type {
	return Type{Kind: KindNode, Name: n.body.name, FieldNames: keywordNames(n.body.keyword)}
}

// isValidIdentifierName reports whether name can be printed as a bare
// identifier; names that can't (e.g. one starting with a digit) are
// printed as a quoted string instead, which the reader accepts as a
// node name too (spec.md §8 seed scenarios S2 and S6).
func isValidIdentifierName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func printNodeBody(x *nodeBody, b *strings.Builder) {
	if isValidIdentifierName(x.name) {
		b.WriteString(x.name)
	} else {
		printQuotedString(x.name, b)
	}
	b.WriteByte('(')
	for i, c := range x.children {
		if i > 0 {
			b.WriteByte(',')
		}
		c.Print(b)
	}
	names := keywordNames(x.keyword)
	for i, k := range names {
		if i > 0 || len(x.children) > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		v, _ := x.keyword.Get(k)
		v.Print(b)
	}
	b.WriteByte(')')
}

func keywordNames(m *hamt.Map[string, Value]) []string {
	if m.Len() == 0 {
		return nil
	}
	names := make([]string, 0, m.Len())
	m.Range(func(k string, _ Value) bool {
		names = append(names, k)
		return true
	})
	sort.Strings(names)
	return names
}

// Constructor is a Node validated, at construction time, against a
// caller-supplied type-check predicate — the "type check predicate"
// collaborator spec.md §1 keeps out of the core's own responsibility.
type Constructor struct{ body *nodeBody }

// TypeCheck reports whether child is an acceptable value for the
// given declared child type. Supplied by the caller; this package
// implements no type-system computation of its own.
type TypeCheck func(child Value, want Type) bool

// NewConstructor validates children against childTypes using check,
// then returns the canonical Constructor for name applied to them.
// It returns an ArityError if the lengths disagree, or a TypeError
// for the first child that fails the check.
func NewConstructor(name string, children []Value, childTypes []Type, keyword map[string]Value, check TypeCheck) (Constructor, error) {
	if len(children) != len(childTypes) {
		return Constructor{}, &ArityError{Expected: len(childTypes), Actual: len(children)}
	}
	for i, c := range children {
		if !check(c, childTypes[i]) {
			return Constructor{}, &TypeError{Expected: childTypes[i], Actual: c.TypeOf()}
		}
	}
	return Constructor{nodeCache.Intern(buildNodeBody(true, name, children, keyword))}, nil
}

// Name returns the constructor's identifier.
func (c Constructor) Name() string { return c.body.name }

// Children returns the constructor's positional children.
func (c Constructor) Children() []Value { return c.body.children }

// Keyword returns the value bound to the given keyword parameter, if
// any.
func (c Constructor) Keyword(name string) (Value, bool) { return c.body.keyword.Get(name) }

func (c Constructor) Hash() uint64 { return structuralHash(c.body) }
func (c Constructor) Equal(other Value) bool {
	o, ok := other.(Constructor)
	return ok && structuralEqual(c.body, o.body)
}
func (c Constructor) Print(b *strings.Builder) { printNodeBody(c.body, b) }
func (c Constructor) TypeOf() Type {
	return Type{Kind: KindConstructor, Name: c.body.name, FieldNames: keywordNames(c.body.keyword)}
}
