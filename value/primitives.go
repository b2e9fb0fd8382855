package value

import (
	"fmt"
	"hash/maphash"
	"math/big"
	"strings"

	"github.com/hconsed/values/intern"
)

// --- Integer ---------------------------------------------------------

type integerBody struct{ v *big.Int }

type integerHasher struct{}

func (integerHasher) Hash(x *integerBody) uint64 {
	return hashWith(KindInteger, func(h *maphash.Hash) {
		h.WriteByte(byte(x.v.Sign() + 1))
		h.Write(x.v.Bytes())
	})
}
func (integerHasher) Equal(a, b *integerBody) bool { return a.v.Cmp(b.v) == 0 }

var integerCache = intern.NewCache[integerBody](integerHasher{})

// Integer is an arbitrary-precision integer value.
type Integer struct{ body *integerBody }

// NewInteger returns the canonical Integer equal to v. The caller
// retains ownership of v; NewInteger copies it.
func NewInteger(v *big.Int) Integer {
	return Integer{integerCache.Intern(&integerBody{v: new(big.Int).Set(v)})}
}

// NewIntegerInt64 returns the canonical Integer equal to n.
func NewIntegerInt64(n int64) Integer {
	return NewInteger(big.NewInt(n))
}

// BigInt returns the integer's value. The caller must not mutate it.
func (i Integer) BigInt() *big.Int { return i.body.v }

func (i Integer) Hash() uint64 { return integerHasher{}.Hash(i.body) }
func (i Integer) Equal(other Value) bool {
	o, ok := other.(Integer)
	return ok && i.body.v.Cmp(o.body.v) == 0
}
func (i Integer) Print(b *strings.Builder) { b.WriteString(i.body.v.String()) }
func (i Integer) TypeOf() Type             { return Type{Kind: KindInteger} }

// --- Rational ---------------------------------------------------------

type rationalBody struct{ v *big.Rat }

type rationalHasher struct{}

func (rationalHasher) Hash(x *rationalBody) uint64 {
	return hashWith(KindRational, func(h *maphash.Hash) {
		h.Write(x.v.Num().Bytes())
		h.WriteByte(byte(x.v.Num().Sign() + 1))
		h.Write(x.v.Denom().Bytes())
	})
}
func (rationalHasher) Equal(a, b *rationalBody) bool { return a.v.Cmp(b.v) == 0 }

var rationalCache = intern.NewCache[rationalBody](rationalHasher{})

// Rational is an arbitrary-precision rational value, always held in
// lowest terms with a positive denominator (big.Rat's own invariant).
type Rational struct{ body *rationalBody }

// NewRational returns the canonical Rational equal to v.
func NewRational(v *big.Rat) Rational {
	return Rational{rationalCache.Intern(&rationalBody{v: new(big.Rat).Set(v)})}
}

// NewRationalInt64 returns the canonical Rational num/den.
func NewRationalInt64(num, den int64) Rational {
	return NewRational(big.NewRat(num, den))
}

// BigRat returns the rational's value. The caller must not mutate it.
func (r Rational) BigRat() *big.Rat { return r.body.v }

func (r Rational) Hash() uint64 { return rationalHasher{}.Hash(r.body) }
func (r Rational) Equal(other Value) bool {
	o, ok := other.(Rational)
	return ok && r.body.v.Cmp(o.body.v) == 0
}

// Print renders the canonical "Nr D" surface form: an integer
// numerator, the letter r, and the (always explicit) denominator.
func (r Rational) Print(b *strings.Builder) {
	b.WriteString(r.body.v.Num().String())
	b.WriteByte('r')
	b.WriteString(r.body.v.Denom().String())
}
func (r Rational) TypeOf() Type { return Type{Kind: KindRational} }

// --- Real ---------------------------------------------------------

type realBody struct {
	v         *big.Float
	sigDigits int
}

type realHasher struct{}

func (realHasher) Hash(x *realBody) uint64 {
	return hashWith(KindReal, func(h *maphash.Hash) {
		h.WriteString(x.v.Text('g', x.sigDigits))
	})
}
func (realHasher) Equal(a, b *realBody) bool {
	return a.sigDigits == b.sigDigits && a.v.Cmp(b.v) == 0
}

var realCache = intern.NewCache[realBody](realHasher{})

// Real is an arbitrary-precision decimal value, rounded to a
// configurable number of significant decimal digits.
type Real struct{ body *realBody }

// NewReal returns the canonical Real equal to v, rounded to
// sigDigits significant decimal digits. A sigDigits of 0 uses the
// process-wide default from intern.Precision.
func NewReal(v *big.Float, sigDigits int) Real {
	if sigDigits <= 0 {
		sigDigits = int(intern.Precision())
	}
	rounded := new(big.Float).SetPrec(v.Prec()).Set(v)
	text := rounded.Text('g', sigDigits)
	rounded, _, _ = big.ParseFloat(text, 10, v.Prec(), big.ToNearestEven)
	return Real{realCache.Intern(&realBody{v: rounded, sigDigits: sigDigits})}
}

// NewRealFloat64 returns the canonical Real equal to f at the
// process-wide default precision.
func NewRealFloat64(f float64) Real {
	return NewReal(big.NewFloat(f), 0)
}

// BigFloat returns the real's value. The caller must not mutate it.
func (r Real) BigFloat() *big.Float { return r.body.v }

func (r Real) Hash() uint64 { return realHasher{}.Hash(r.body) }
func (r Real) Equal(other Value) bool {
	o, ok := other.(Real)
	return ok && realHasher{}.Equal(r.body, o.body)
}
func (r Real) Print(b *strings.Builder) {
	b.WriteString(r.body.v.Text('g', r.body.sigDigits))
}
func (r Real) TypeOf() Type { return Type{Kind: KindReal} }

// --- Boolean ---------------------------------------------------------

// Boolean is a boolean value. Unlike the other kinds, there are only
// two possible instances, so Boolean skips the intern cache entirely
// and is compared/hashed directly.
type Boolean bool

// NewBoolean returns True or False as appropriate.
func NewBoolean(b bool) Boolean { return Boolean(b) }

func (b Boolean) Hash() uint64 {
	return hashWith(KindBoolean, func(h *maphash.Hash) {
		if b {
			h.WriteByte(1)
		} else {
			h.WriteByte(0)
		}
	})
}
func (b Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}
func (b Boolean) Print(sb *strings.Builder) {
	if b {
		sb.WriteString("true")
	} else {
		sb.WriteString("false")
	}
}
func (b Boolean) TypeOf() Type { return Type{Kind: KindBoolean} }

// --- String ---------------------------------------------------------

type stringBody struct{ v string }

type stringHasher struct{}

func (stringHasher) Hash(x *stringBody) uint64 {
	return hashWith(KindString, func(h *maphash.Hash) { h.WriteString(x.v) })
}
func (stringHasher) Equal(a, b *stringBody) bool { return a.v == b.v }

var stringCache = intern.NewCache[stringBody](stringHasher{})

// String is a Unicode code point sequence value.
type String struct{ body *stringBody }

// NewString returns the canonical String equal to s.
func NewString(s string) String {
	return String{stringCache.Intern(&stringBody{v: s})}
}

// Go returns the underlying Go string.
func (s String) Go() string { return s.body.v }

func (s String) Hash() uint64 { return stringHasher{}.Hash(s.body) }
func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && s.body.v == o.body.v
}

// escapeTable maps code points the writer always escapes to their
// shortest well-formed escape sequence, per spec.md §4.5.
var escapeTable = map[rune]string{
	'\n': `\n`, '\t': `\t`, '\r': `\r`, '\f': `\f`, '\b': `\b`,
	'"': `\"`, '\\': `\\`, '\'': `\'`, '<': `\<`, '>': `\>`,
}

func (s String) Print(b *strings.Builder) { printQuotedString(s.body.v, b) }

// printQuotedString writes s as a quoted string literal, escaping
// control characters per spec.md §4.5. Shared with Node/Constructor
// printing for node names that aren't valid bare identifiers.
func printQuotedString(s string, b *strings.Builder) {
	b.WriteByte('"')
	for _, r := range s {
		if esc, ok := escapeTable[r]; ok {
			b.WriteString(esc)
			continue
		}
		if r < 0x20 {
			b.WriteString(`\a`)
			b.WriteString(fmt.Sprintf("%02x", r))
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
}
func (s String) TypeOf() Type { return Type{Kind: KindString} }
