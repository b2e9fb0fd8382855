package value

import (
	"fmt"
	"hash/maphash"
	"net/url"
	"strings"
	"time"

	"github.com/hconsed/values/intern"
)

// --- DateTime ---------------------------------------------------------

type dtVariant int

const (
	dtDate dtVariant = iota
	dtTime
	dtFull
)

type dateTimeBody struct {
	variant       dtVariant
	year          int
	month         int
	day           int
	hour          int
	minute        int
	second        int
	millis        int
	offsetMinutes int
	hasOffset     bool
}

func (d *dateTimeBody) printTo(b *strings.Builder) {
	b.WriteByte('$')
	if d.variant == dtDate || d.variant == dtFull {
		fmt.Fprintf(b, "%04d-%02d-%02d", d.year, d.month, d.day)
	}
	if d.variant == dtFull {
		b.WriteByte('T')
	}
	if d.variant == dtTime || d.variant == dtFull {
		if d.variant == dtTime {
			b.WriteByte('T')
		}
		fmt.Fprintf(b, "%02d:%02d:%02d.%03d", d.hour, d.minute, d.second, d.millis)
		if d.hasOffset {
			sign := byte('+')
			off := d.offsetMinutes
			if off < 0 {
				sign = '-'
				off = -off
			}
			fmt.Fprintf(b, "%c%02d:%02d", sign, off/60, off%60)
		}
	}
	b.WriteByte('$')
}

func (d *dateTimeBody) text() string {
	var b strings.Builder
	d.printTo(&b)
	return b.String()
}

type dateTimeHasher struct{}

func (dateTimeHasher) Hash(x *dateTimeBody) uint64 {
	return hashWith(KindDateTime, func(h *maphash.Hash) { h.WriteString(x.text()) })
}
func (dateTimeHasher) Equal(a, b *dateTimeBody) bool { return a.text() == b.text() }

var dateTimeCache = intern.NewCache[dateTimeBody](dateTimeHasher{})

// DateTime represents a date-only, time-only, or full date-and-time
// value, per spec.md §4.5's three `$...$`-delimited surface forms.
type DateTime struct{ body *dateTimeBody }

// NewDate returns the canonical date-only DateTime year-month-day.
func NewDate(year, month, day int) DateTime {
	return DateTime{dateTimeCache.Intern(&dateTimeBody{
		variant: dtDate, year: year, month: month, day: day,
	})}
}

// NewTimeOfDay returns the canonical time-only DateTime. If hasOffset
// is false, the value carries no UTC offset (a "local" time).
func NewTimeOfDay(hour, minute, second, millis, offsetMinutes int, hasOffset bool) DateTime {
	return DateTime{dateTimeCache.Intern(&dateTimeBody{
		variant: dtTime, hour: hour, minute: minute, second: second, millis: millis,
		offsetMinutes: offsetMinutes, hasOffset: hasOffset,
	})}
}

// NewDateTime returns the canonical full DateTime.
func NewDateTime(year, month, day, hour, minute, second, millis, offsetMinutes int, hasOffset bool) DateTime {
	return DateTime{dateTimeCache.Intern(&dateTimeBody{
		variant: dtFull, year: year, month: month, day: day,
		hour: hour, minute: minute, second: second, millis: millis,
		offsetMinutes: offsetMinutes, hasOffset: hasOffset,
	})}
}

// FromTime returns the canonical full DateTime equal to t, with its
// offset taken from t's location.
func FromTime(t time.Time) DateTime {
	_, offsetSeconds := t.Zone()
	return NewDateTime(t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6,
		offsetSeconds/60, true)
}

func (d DateTime) Hash() uint64 { return dateTimeHasher{}.Hash(d.body) }
func (d DateTime) Equal(other Value) bool {
	o, ok := other.(DateTime)
	return ok && dateTimeHasher{}.Equal(d.body, o.body)
}
func (d DateTime) Print(b *strings.Builder) { d.body.printTo(b) }
func (d DateTime) TypeOf() Type             { return Type{Kind: KindDateTime} }

// HasDate reports whether d carries a date component.
func (d DateTime) HasDate() bool { return d.body.variant == dtDate || d.body.variant == dtFull }

// HasTime reports whether d carries a time-of-day component.
func (d DateTime) HasTime() bool { return d.body.variant == dtTime || d.body.variant == dtFull }

// --- SourceLocation ---------------------------------------------------------

type sourceLocationBody struct {
	uri        string
	hasRange   bool
	offset     int
	length     int
	hasLineCol bool
	beginLine  int
	beginCol   int
	endLine    int
	endCol     int
}

func (s *sourceLocationBody) printTo(b *strings.Builder) {
	b.WriteByte('|')
	b.WriteString(s.uri)
	b.WriteByte('|')
	if !s.hasRange {
		return
	}
	fmt.Fprintf(b, "(%d,%d", s.offset, s.length)
	if s.hasLineCol {
		fmt.Fprintf(b, ",<%d,%d>,<%d,%d>", s.beginLine, s.beginCol, s.endLine, s.endCol)
	}
	b.WriteByte(')')
}

func (s *sourceLocationBody) text() string {
	var b strings.Builder
	s.printTo(&b)
	return b.String()
}

type sourceLocationHasher struct{}

func (sourceLocationHasher) Hash(x *sourceLocationBody) uint64 {
	return hashWith(KindSourceLocation, func(h *maphash.Hash) { h.WriteString(x.text()) })
}
func (sourceLocationHasher) Equal(a, b *sourceLocationBody) bool { return a.text() == b.text() }

var sourceLocationCache = intern.NewCache[sourceLocationBody](sourceLocationHasher{})

// SourceLocation is a URI optionally paired with an offset/length
// range and, within that, an optional begin/end line-column range.
type SourceLocation struct{ body *sourceLocationBody }

// NewSourceLocation returns the canonical SourceLocation for uri alone.
func NewSourceLocation(uri *url.URL) SourceLocation {
	return SourceLocation{sourceLocationCache.Intern(&sourceLocationBody{uri: uri.String()})}
}

// WithRange returns the canonical SourceLocation combining the
// receiver's URI with an (offset, length) range. It returns a
// *DomainError if offset or length is negative.
func (s SourceLocation) WithRange(offset, length int) (SourceLocation, error) {
	if offset < 0 {
		return SourceLocation{}, &DomainError{Which: "offset", Element: NewIntegerInt64(int64(offset))}
	}
	if length < 0 {
		return SourceLocation{}, &DomainError{Which: "length", Element: NewIntegerInt64(int64(length))}
	}
	return SourceLocation{sourceLocationCache.Intern(&sourceLocationBody{
		uri: s.body.uri, hasRange: true, offset: offset, length: length,
	})}, nil
}

// WithLineCol returns the canonical SourceLocation combining the
// receiver's URI with a full offset/length/line-column range. It
// returns a *DomainError if offset or length is negative, or if
// either line-column pair is inconsistent (begin after end).
func (s SourceLocation) WithLineCol(offset, length, beginLine, beginCol, endLine, endCol int) (SourceLocation, error) {
	if offset < 0 {
		return SourceLocation{}, &DomainError{Which: "offset", Element: NewIntegerInt64(int64(offset))}
	}
	if length < 0 {
		return SourceLocation{}, &DomainError{Which: "length", Element: NewIntegerInt64(int64(length))}
	}
	if beginLine > endLine || (beginLine == endLine && beginCol > endCol) {
		return SourceLocation{}, &DomainError{Which: "lineCol", Element: NewIntegerInt64(int64(beginLine))}
	}
	return SourceLocation{sourceLocationCache.Intern(&sourceLocationBody{
		uri: s.body.uri, hasRange: true, offset: offset, length: length,
		hasLineCol: true, beginLine: beginLine, beginCol: beginCol, endLine: endLine, endCol: endCol,
	})}, nil
}

// URI returns the location's URI.
func (s SourceLocation) URI() string { return s.body.uri }

func (s SourceLocation) Hash() uint64 { return sourceLocationHasher{}.Hash(s.body) }
func (s SourceLocation) Equal(other Value) bool {
	o, ok := other.(SourceLocation)
	return ok && sourceLocationHasher{}.Equal(s.body, o.body)
}
func (s SourceLocation) Print(b *strings.Builder) { s.body.printTo(b) }
func (s SourceLocation) TypeOf() Type             { return Type{Kind: KindSourceLocation} }
