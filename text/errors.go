package text

import "fmt"

// ParseError reports a malformed textual value, with the offset (in
// code points from the start of the stream) where parsing failed.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("text: parse error at offset %d: %s", e.Offset, e.Message)
}

func (r *Reader) errorf(format string, args ...any) error {
	return &ParseError{Offset: r.pos, Message: fmt.Sprintf(format, args...)}
}
