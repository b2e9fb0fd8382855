// Package text implements the canonical textual notation spec.md §4.5
// describes: a deterministic grammar that prints and parses every
// value.Value kind such that parse(print(v)) == v under structural
// equality. A value.Constructor prints in node syntax and is read back
// as a value.Node; the reader never builds a Constructor. Grounded on
// original_source/.../io/StandardTextReader.java for the reader's
// single-lookahead-rune scanning discipline, and on cellux-langsam's
// scanner/print duality for the writer's shortest-escape convention.
package text

import (
	"io"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/hconsed/values/value"
)

// Reader parses the canonical textual form from a single input
// stream. A Reader is single-use: construct one per stream, and call
// Read once per top-level value it holds.
type Reader struct {
	src []rune
	pos int
	cur rune

	// locationCache avoids re-parsing the same URI text repeatedly
	// within one parse, mirroring StandardTextReader's own
	// sourceLocationCache.
	locationCache map[string]*url.URL
}

// NewReader reads r fully and returns a Reader positioned at its
// first rune.
func NewReader(r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rd := &Reader{src: []rune(string(data)), locationCache: make(map[string]*url.URL)}
	if len(rd.src) > 0 {
		rd.cur = rd.src[0]
	} else {
		rd.cur = eof
	}
	return rd, nil
}

// Read parses exactly one top-level value, skipping leading and
// trailing insignificant whitespace. If expected.Kind is not
// value.KindAny, the parsed value's kind must match it or a
// *value.TypeError is returned.
func (r *Reader) Read(expected value.Type) (value.Value, error) {
	r.skipWhitespace()
	v, err := r.readValue()
	if err != nil {
		return nil, err
	}
	r.skipWhitespace()
	if expected.Kind != value.KindAny && v.TypeOf().Kind != expected.Kind {
		return nil, &value.TypeError{Expected: expected, Actual: v.TypeOf()}
	}
	return v, nil
}

// Read parses a single value of expected's kind (or any kind, when
// expected.Kind is value.KindAny) from r.
func Read(r io.Reader, expected value.Type) (value.Value, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	return rd.Read(expected)
}

func (r *Reader) readValue() (value.Value, error) {
	r.skipWhitespace()
	switch {
	case r.cur == '-' || isDigit(r.cur):
		return r.readNumber()
	case r.cur == '"':
		return r.readString()
	case r.cur == '$':
		return r.readDateTime()
	case r.cur == '|':
		return r.readSourceLocation()
	case r.cur == '[':
		return r.readList()
	case r.cur == '{':
		return r.readSet()
	case r.cur == '<':
		return r.readTuple()
	case r.cur == '(':
		return r.readMap()
	case isIdentStart(r.cur):
		return r.readIdentifierValue()
	default:
		return nil, r.errorf("unexpected character %q", r.cur)
	}
}

// readNumber disambiguates integer/rational/real by the presence of a
// trailing `.`/`e`/`E` (real) or `r` (rational); absent either, the
// literal is an integer, per spec.md §4.5.
func (r *Reader) readNumber() (value.Value, error) {
	start := r.pos
	if r.cur == '-' {
		r.advance()
	}
	if _, err := r.readDigits(); err != nil {
		return nil, err
	}
	numText := string(r.src[start:r.pos])

	if r.cur == '.' || r.cur == 'e' || r.cur == 'E' {
		if r.cur == '.' {
			r.advance()
			if _, err := r.readDigits(); err != nil {
				return nil, err
			}
		}
		if r.cur == 'e' || r.cur == 'E' {
			r.advance()
			if r.cur == '+' || r.cur == '-' {
				r.advance()
			}
			if _, err := r.readDigits(); err != nil {
				return nil, err
			}
		}
		text := string(r.src[start:r.pos])
		f, _, err := big.ParseFloat(text, 10, 256, big.ToNearestEven)
		if err != nil {
			return nil, r.errorf("invalid real literal %q", text)
		}
		return value.NewReal(f, significantDigits(text)), nil
	}

	if r.cur == 'r' {
		r.advance()
		denomStart := r.pos
		for isDigit(r.cur) {
			r.advance()
		}
		denom := string(r.src[denomStart:r.pos])
		if denom == "" {
			denom = "1"
		}
		rat := new(big.Rat)
		if _, ok := rat.SetString(numText + "/" + denom); !ok {
			return nil, r.errorf("invalid rational literal %q", numText+"/"+denom)
		}
		return value.NewRational(rat), nil
	}

	n := new(big.Int)
	if _, ok := n.SetString(numText, 10); !ok {
		return nil, r.errorf("invalid integer literal %q", numText)
	}
	return value.NewInteger(n), nil
}

// significantDigits counts the significant decimal digits in a real
// literal's text, so NewReal rounds to exactly the precision the
// literal expressed rather than some unrelated process-wide default —
// required for the exact-bit round-trip contract of spec.md §4.5.
func significantDigits(text string) int {
	var digits []byte
	for i := 0; i < len(text); i++ {
		if c := text[i]; c == 'e' || c == 'E' {
			break
		} else if c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	i := 0
	for i < len(digits)-1 && digits[i] == '0' {
		i++
	}
	if n := len(digits) - i; n > 0 {
		return n
	}
	return 1
}

// readString reads a quoted string literal. A node's identifier may
// also be spelled as a quoted string (needed for names that aren't
// valid bare identifiers, e.g. a leading digit) — spec.md §8's seed
// scenarios S2 and S6 both exercise this, so a quoted literal
// immediately followed by `(` is read as a node call instead of a
// plain string value.
func (r *Reader) readString() (value.Value, error) {
	s, err := r.readStringLiteral()
	if err != nil {
		return nil, err
	}
	r.skipWhitespace()
	if r.cur == '(' {
		return r.readNode(s)
	}
	return value.NewString(s), nil
}

func (r *Reader) readStringLiteral() (string, error) {
	if err := r.expect('"'); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		switch r.cur {
		case eof:
			return "", r.errorf("unterminated string literal")
		case '"':
			r.advance()
			return b.String(), nil
		case '\\':
			r.advance()
			if err := r.readEscape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteRune(r.cur)
			r.advance()
		}
	}
}

func (r *Reader) readEscape(b *strings.Builder) error {
	switch r.cur {
	case 'n':
		b.WriteByte('\n')
		r.advance()
	case 't':
		b.WriteByte('\t')
		r.advance()
	case 'r':
		b.WriteByte('\r')
		r.advance()
	case 'f':
		b.WriteByte('\f')
		r.advance()
	case 'b':
		b.WriteByte('\b')
		r.advance()
	case '"':
		b.WriteByte('"')
		r.advance()
	case '\\':
		b.WriteByte('\\')
		r.advance()
	case '\'':
		b.WriteByte('\'')
		r.advance()
	case '<':
		b.WriteByte('<')
		r.advance()
	case '>':
		b.WriteByte('>')
		r.advance()
	case 'a':
		r.advance()
		v, err := r.readHex(2)
		if err != nil {
			return err
		}
		b.WriteByte(byte(v))
	case 'u':
		r.advance()
		v, err := r.readHex(4)
		if err != nil {
			return err
		}
		b.WriteRune(v)
	case 'U':
		r.advance()
		v, err := r.readHex(6)
		if err != nil {
			return err
		}
		b.WriteRune(v)
	default:
		return r.errorf("unknown escape %q", r.cur)
	}
	return nil
}

func (r *Reader) readDateTime() (value.Value, error) {
	if err := r.expect('$'); err != nil {
		return nil, err
	}
	hasDate := false
	var year, month, day int
	if isDigit(r.cur) {
		hasDate = true
		y, err := r.readFixedDigits(4)
		if err != nil {
			return nil, err
		}
		if err := r.expect('-'); err != nil {
			return nil, err
		}
		mo, err := r.readFixedDigits(2)
		if err != nil {
			return nil, err
		}
		if err := r.expect('-'); err != nil {
			return nil, err
		}
		da, err := r.readFixedDigits(2)
		if err != nil {
			return nil, err
		}
		year, _ = strconv.Atoi(y)
		month, _ = strconv.Atoi(mo)
		day, _ = strconv.Atoi(da)
	}

	hasTime := false
	var hour, minute, second, millis, offsetMinutes int
	hasOffset := false
	if r.cur == 'T' {
		hasTime = true
		r.advance()
		hh, err := r.readFixedDigits(2)
		if err != nil {
			return nil, err
		}
		if err := r.expect(':'); err != nil {
			return nil, err
		}
		mm, err := r.readFixedDigits(2)
		if err != nil {
			return nil, err
		}
		if err := r.expect(':'); err != nil {
			return nil, err
		}
		ss, err := r.readFixedDigits(2)
		if err != nil {
			return nil, err
		}
		if err := r.expect('.'); err != nil {
			return nil, err
		}
		ms, err := r.readFixedDigits(3)
		if err != nil {
			return nil, err
		}
		hour, _ = strconv.Atoi(hh)
		minute, _ = strconv.Atoi(mm)
		second, _ = strconv.Atoi(ss)
		millis, _ = strconv.Atoi(ms)

		if r.cur == '+' || r.cur == '-' {
			hasOffset = true
			sign := r.cur
			r.advance()
			oh, err := r.readFixedDigits(2)
			if err != nil {
				return nil, err
			}
			if r.cur == ':' {
				r.advance()
			}
			om, err := r.readFixedDigits(2)
			if err != nil {
				return nil, err
			}
			offH, _ := strconv.Atoi(oh)
			offM, _ := strconv.Atoi(om)
			offsetMinutes = offH*60 + offM
			if sign == '-' {
				offsetMinutes = -offsetMinutes
			}
		}
	}

	if err := r.expect('$'); err != nil {
		return nil, err
	}

	switch {
	case hasDate && hasTime:
		return value.NewDateTime(year, month, day, hour, minute, second, millis, offsetMinutes, hasOffset), nil
	case hasDate:
		return value.NewDate(year, month, day), nil
	case hasTime:
		return value.NewTimeOfDay(hour, minute, second, millis, offsetMinutes, hasOffset), nil
	default:
		return nil, r.errorf("empty datetime literal")
	}
}

func (r *Reader) readInt() (int, error) {
	neg := false
	if r.cur == '-' {
		neg = true
		r.advance()
	}
	digits, err := r.readDigits()
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(digits)
	if neg {
		n = -n
	}
	return n, nil
}

func (r *Reader) readSourceLocation() (value.Value, error) {
	if err := r.expect('|'); err != nil {
		return nil, err
	}
	start := r.pos
	for r.cur != '|' {
		if r.cur == eof {
			return nil, r.errorf("unterminated source location")
		}
		r.advance()
	}
	uriText := string(r.src[start:r.pos])
	r.advance()

	u, ok := r.locationCache[uriText]
	if !ok {
		parsed, err := url.Parse(uriText)
		if err != nil {
			return nil, r.errorf("invalid uri %q: %v", uriText, err)
		}
		u = parsed
		r.locationCache[uriText] = u
	}
	loc := value.NewSourceLocation(u)

	r.skipWhitespace()
	if r.cur != '(' {
		return loc, nil
	}
	r.advance()
	offset, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if err := r.expect(','); err != nil {
		return nil, err
	}
	length, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if r.cur != ',' {
		if err := r.expect(')'); err != nil {
			return nil, err
		}
		withRange, err := loc.WithRange(offset, length)
		if err != nil {
			return nil, r.errorf("%v", err)
		}
		return withRange, nil
	}
	r.advance()
	if err := r.expect('<'); err != nil {
		return nil, err
	}
	bl, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if err := r.expect(','); err != nil {
		return nil, err
	}
	bc, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if err := r.expect('>'); err != nil {
		return nil, err
	}
	if err := r.expect(','); err != nil {
		return nil, err
	}
	if err := r.expect('<'); err != nil {
		return nil, err
	}
	el, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if err := r.expect(','); err != nil {
		return nil, err
	}
	ec, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if err := r.expect('>'); err != nil {
		return nil, err
	}
	if err := r.expect(')'); err != nil {
		return nil, err
	}
	withLineCol, err := loc.WithLineCol(offset, length, bl, bc, el, ec)
	if err != nil {
		return nil, r.errorf("%v", err)
	}
	return withLineCol, nil
}

func (r *Reader) readList() (value.Value, error) {
	elems, err := r.readSeparated('[', ']')
	if err != nil {
		return nil, err
	}
	return value.NewList(elems...), nil
}

func (r *Reader) readSet() (value.Value, error) {
	elems, err := r.readSeparated('{', '}')
	if err != nil {
		return nil, err
	}
	return value.NewSet(elems...), nil
}

func (r *Reader) readTuple() (value.Value, error) {
	elems, err := r.readSeparated('<', '>')
	if err != nil {
		return nil, err
	}
	return value.NewTuple(elems...), nil
}

// readSeparated parses `open value "," ... close`, shared by list,
// set, and tuple literals.
func (r *Reader) readSeparated(open, close rune) ([]value.Value, error) {
	if err := r.expect(open); err != nil {
		return nil, err
	}
	var elems []value.Value
	r.skipWhitespace()
	if r.cur != close {
		for {
			v, err := r.readValue()
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
			r.skipWhitespace()
			if r.cur == ',' {
				r.advance()
				r.skipWhitespace()
				continue
			}
			break
		}
	}
	if err := r.expect(close); err != nil {
		return nil, err
	}
	return elems, nil
}

func (r *Reader) readMap() (value.Value, error) {
	if err := r.expect('('); err != nil {
		return nil, err
	}
	m := value.NewMap()
	r.skipWhitespace()
	if r.cur != ')' {
		for {
			k, err := r.readValue()
			if err != nil {
				return nil, err
			}
			r.skipWhitespace()
			if err := r.expect(':'); err != nil {
				return nil, err
			}
			r.skipWhitespace()
			v, err := r.readValue()
			if err != nil {
				return nil, err
			}
			m = m.Set(k, v)
			r.skipWhitespace()
			if r.cur == ',' {
				r.advance()
				r.skipWhitespace()
				continue
			}
			break
		}
	}
	if err := r.expect(')'); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Reader) readIdentifierValue() (value.Value, error) {
	name, err := r.readIdentifier()
	if err != nil {
		return nil, err
	}
	switch name {
	case "true":
		return value.NewBoolean(true), nil
	case "false":
		return value.NewBoolean(false), nil
	}
	r.skipWhitespace()
	if r.cur != '(' {
		return nil, r.errorf("unexpected identifier %q", name)
	}
	return r.readNode(name)
}

// readNode parses `name "(" value|label=value "," ... ")"`, followed
// by an optional legacy `[@label=value,...]` trailing block — the
// annotation syntax spec.md §4.5 and §9(ii) still have the reader
// accept, merging straight into the keyword-parameter map.
func (r *Reader) readNode(name string) (value.Value, error) {
	if err := r.expect('('); err != nil {
		return nil, err
	}
	var children []value.Value
	keyword := make(map[string]value.Value)
	r.skipWhitespace()
	if r.cur != ')' {
		for {
			label, isKeyword, err := r.tryReadLabel()
			if err != nil {
				return nil, err
			}
			r.skipWhitespace()
			v, err := r.readValue()
			if err != nil {
				return nil, err
			}
			if isKeyword {
				keyword[label] = v
			} else {
				children = append(children, v)
			}
			r.skipWhitespace()
			if r.cur == ',' {
				r.advance()
				r.skipWhitespace()
				continue
			}
			break
		}
	}
	if err := r.expect(')'); err != nil {
		return nil, err
	}
	r.skipWhitespace()
	if r.cur == '[' {
		if err := r.readLegacyAnnotations(keyword); err != nil {
			return nil, err
		}
	}
	return value.NewNode(name, children, keyword), nil
}

// tryReadLabel speculatively consumes `identifier "="`, reporting a
// keyword label. If the lookahead identifier is not followed by `=`,
// the scanner position is rewound so readValue can parse it as an
// ordinary value (e.g. a nested node name, or true/false).
func (r *Reader) tryReadLabel() (string, bool, error) {
	if !isIdentStart(r.cur) {
		return "", false, nil
	}
	savePos, saveCur := r.pos, r.cur
	name, err := r.readIdentifier()
	if err != nil {
		return "", false, nil
	}
	r.skipWhitespace()
	if r.cur == '=' {
		r.advance()
		return name, true, nil
	}
	r.pos, r.cur = savePos, saveCur
	return "", false, nil
}

func (r *Reader) readLegacyAnnotations(keyword map[string]value.Value) error {
	if err := r.expect('['); err != nil {
		return err
	}
	r.skipWhitespace()
	if r.cur != ']' {
		for {
			if err := r.expect('@'); err != nil {
				return err
			}
			label, err := r.readIdentifier()
			if err != nil {
				return err
			}
			r.skipWhitespace()
			if err := r.expect('='); err != nil {
				return err
			}
			r.skipWhitespace()
			v, err := r.readValue()
			if err != nil {
				return err
			}
			keyword[label] = v
			r.skipWhitespace()
			if r.cur == ',' {
				r.advance()
				r.skipWhitespace()
				continue
			}
			break
		}
	}
	return r.expect(']')
}
