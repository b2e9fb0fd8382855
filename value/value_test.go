package value_test

import (
	"math/big"
	"net/url"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/hconsed/values/value"
)

func printed(v value.Value) string {
	var b strings.Builder
	v.Print(&b)
	return b.String()
}

func TestIntegerIdentityAndPrint(t *testing.T) {
	c := qt.New(t)
	a := value.NewIntegerInt64(42)
	b := value.NewInteger(big.NewInt(42))
	c.Assert(a.Equal(b), qt.IsTrue)
	c.Assert(a.Hash(), qt.Equals, b.Hash())
	c.Assert(printed(a), qt.Equals, "42")

	neg := value.NewIntegerInt64(-7)
	c.Assert(printed(neg), qt.Equals, "-7")
	c.Assert(a.Equal(neg), qt.IsFalse)
}

func TestRationalPrintsBothParts(t *testing.T) {
	c := qt.New(t)
	r := value.NewRationalInt64(3, 4)
	c.Assert(printed(r), qt.Equals, "3r4")

	r2 := value.NewRationalInt64(6, 8) // reduces to 3/4
	c.Assert(r.Equal(r2), qt.IsTrue)
}

func TestBooleanPrint(t *testing.T) {
	c := qt.New(t)
	c.Assert(printed(value.NewBoolean(true)), qt.Equals, "true")
	c.Assert(printed(value.NewBoolean(false)), qt.Equals, "false")
	c.Assert(value.NewBoolean(true).Equal(value.NewBoolean(true)), qt.IsTrue)
	c.Assert(value.NewBoolean(true).Equal(value.NewBoolean(false)), qt.IsFalse)
}

func TestStringEscaping(t *testing.T) {
	c := qt.New(t)
	s := value.NewString("a\nb\"c\\d")
	c.Assert(printed(s), qt.Equals, `"a\nb\"c\\d"`)
}

func TestStringIdentity(t *testing.T) {
	c := qt.New(t)
	a := value.NewString("hello")
	b := value.NewString("hello")
	c.Assert(a.Equal(b), qt.IsTrue)
	c.Assert(a.Hash(), qt.Equals, b.Hash())
}

func TestDateTimeVariants(t *testing.T) {
	c := qt.New(t)
	d := value.NewDate(2026, 8, 3)
	c.Assert(printed(d), qt.Equals, "$2026-08-03$")

	tm := value.NewTimeOfDay(14, 30, 0, 500, 60, true)
	c.Assert(printed(tm), qt.Equals, "$T14:30:00.500+01:00$")

	full := value.NewDateTime(2026, 8, 3, 14, 30, 0, 500, 60, true)
	c.Assert(printed(full), qt.Equals, "$2026-08-03T14:30:00.500+01:00$")
}

func TestSourceLocationPrint(t *testing.T) {
	c := qt.New(t)
	u, err := url.Parse("file:///tmp/a.rsc")
	c.Assert(err, qt.IsNil)
	loc := value.NewSourceLocation(u)
	c.Assert(printed(loc), qt.Equals, "|file:///tmp/a.rsc|")

	withRange, err := loc.WithRange(10, 5)
	c.Assert(err, qt.IsNil)
	c.Assert(printed(withRange), qt.Equals, "|file:///tmp/a.rsc|(10,5)")

	withLC, err := loc.WithLineCol(10, 5, 1, 2, 1, 7)
	c.Assert(err, qt.IsNil)
	c.Assert(printed(withLC), qt.Equals, "|file:///tmp/a.rsc|(10,5,<1,2>,<1,7>)")
}

func TestSourceLocationRejectsInvalidDomain(t *testing.T) {
	c := qt.New(t)
	u, err := url.Parse("file:///tmp/a.rsc")
	c.Assert(err, qt.IsNil)
	loc := value.NewSourceLocation(u)

	_, err = loc.WithRange(-1, 5)
	var domainErr *value.DomainError
	c.Assert(err, qt.ErrorAs, &domainErr)
	c.Assert(domainErr.Which, qt.Equals, "offset")

	_, err = loc.WithRange(5, -1)
	c.Assert(err, qt.ErrorAs, &domainErr)
	c.Assert(domainErr.Which, qt.Equals, "length")

	_, err = loc.WithLineCol(0, 1, 3, 1, 1, 1)
	c.Assert(err, qt.ErrorAs, &domainErr)
	c.Assert(domainErr.Which, qt.Equals, "lineCol")
}

func TestListEqualityAndPrint(t *testing.T) {
	c := qt.New(t)
	a := value.NewList(value.NewIntegerInt64(1), value.NewIntegerInt64(2))
	b := value.NewList(value.NewIntegerInt64(1), value.NewIntegerInt64(2))
	c.Assert(a.Equal(b), qt.IsTrue)
	c.Assert(printed(a), qt.Equals, "[1,2]")

	diffOrder := value.NewList(value.NewIntegerInt64(2), value.NewIntegerInt64(1))
	c.Assert(a.Equal(diffOrder), qt.IsFalse, qt.Commentf("lists are ordered"))
}

func TestTupleArityAndAt(t *testing.T) {
	c := qt.New(t)
	tup := value.NewTuple(value.NewIntegerInt64(1), value.NewBoolean(true))
	c.Assert(tup.Arity(), qt.Equals, 2)
	c.Assert(tup.At(1).Equal(value.NewBoolean(true)), qt.IsTrue)
	c.Assert(printed(tup), qt.Equals, "<1,true>")
}

func TestSetIgnoresOrderAndDuplicates(t *testing.T) {
	c := qt.New(t)
	a := value.NewSet(value.NewIntegerInt64(1), value.NewIntegerInt64(2), value.NewIntegerInt64(1))
	b := value.NewSet(value.NewIntegerInt64(2), value.NewIntegerInt64(1))
	c.Assert(a.Len(), qt.Equals, 2)
	c.Assert(a.Equal(b), qt.IsTrue)
}

func TestMapGetSet(t *testing.T) {
	c := qt.New(t)
	m := value.NewMap().Set(value.NewString("k"), value.NewIntegerInt64(1))
	v, ok := m.Get(value.NewString("k"))
	c.Assert(ok, qt.IsTrue)
	c.Assert(v.Equal(value.NewIntegerInt64(1)), qt.IsTrue)
}

// TestSetPrintIsOrderIndependent builds the same set of elements via
// two different insertion orders and asserts identical printed form,
// the writer-determinism property (print(a) == print(b) whenever
// a.equals(b)) that a hash-collision node's insertion-order-preserving
// layout would otherwise violate.
func TestSetPrintIsOrderIndependent(t *testing.T) {
	c := qt.New(t)
	elems := []value.Value{
		value.NewIntegerInt64(3), value.NewIntegerInt64(1), value.NewString("z"),
		value.NewIntegerInt64(2), value.NewBoolean(true), value.NewString("a"),
	}
	forward := value.NewSet(elems...)
	reversed := make([]value.Value, len(elems))
	for i, e := range elems {
		reversed[len(elems)-1-i] = e
	}
	backward := value.NewSet(reversed...)

	c.Assert(forward.Equal(backward), qt.IsTrue)
	c.Assert(printed(forward), qt.Equals, printed(backward))
}

// TestMapPrintIsOrderIndependent is TestSetPrintIsOrderIndependent's
// counterpart for Map, keyed on the same principle.
func TestMapPrintIsOrderIndependent(t *testing.T) {
	c := qt.New(t)
	keys := []value.Value{value.NewIntegerInt64(3), value.NewIntegerInt64(1), value.NewString("z"), value.NewIntegerInt64(2)}

	forward := value.NewMap()
	for i, k := range keys {
		forward = forward.Set(k, value.NewIntegerInt64(int64(i)))
	}
	backward := value.NewMap()
	for i := len(keys) - 1; i >= 0; i-- {
		backward = backward.Set(keys[i], value.NewIntegerInt64(int64(i)))
	}

	c.Assert(forward.Equal(backward), qt.IsTrue)
	c.Assert(printed(forward), qt.Equals, printed(backward))
}

func TestNodeEqualityIgnoresKeywordParams(t *testing.T) {
	c := qt.New(t)
	a := value.NewNode("f", []value.Value{value.NewIntegerInt64(1)}, map[string]value.Value{"label": value.NewString("x")})
	b := value.NewNode("f", []value.Value{value.NewIntegerInt64(1)}, map[string]value.Value{"label": value.NewString("y")})
	c.Assert(a.Equal(b), qt.IsTrue, qt.Commentf("structural equality ignores keyword parameters"))
	c.Assert(a.Hash(), qt.Equals, b.Hash())

	lbl, ok := a.Keyword("label")
	c.Assert(ok, qt.IsTrue)
	c.Assert(lbl.Equal(value.NewString("x")), qt.IsTrue)
}

func TestNodePrint(t *testing.T) {
	c := qt.New(t)
	n := value.NewNode("f", []value.Value{value.NewIntegerInt64(1), value.NewIntegerInt64(2)}, map[string]value.Value{"k": value.NewBoolean(true)})
	c.Assert(printed(n), qt.Equals, "f(1,2,k=true)")
}

func TestConstructorValidatesArityAndType(t *testing.T) {
	c := qt.New(t)
	intType := value.Type{Kind: value.KindInteger}
	sameKind := func(v value.Value, want value.Type) bool { return v.TypeOf().Kind == want.Kind }

	_, err := value.NewConstructor("f", []value.Value{value.NewBoolean(true)}, []value.Type{intType}, nil, sameKind)
	c.Assert(err, qt.Not(qt.IsNil))
	var typeErr *value.TypeError
	c.Assert(err, qt.ErrorAs, &typeErr)

	_, err = value.NewConstructor("f", []value.Value{}, []value.Type{intType}, nil, sameKind)
	var arityErr *value.ArityError
	c.Assert(err, qt.ErrorAs, &arityErr)

	ctor, err := value.NewConstructor("f", []value.Value{value.NewIntegerInt64(9)}, []value.Type{intType}, nil, sameKind)
	c.Assert(err, qt.IsNil)
	c.Assert(printed(ctor), qt.Equals, "f(9)")
}
