package text

import (
	"io"
	"strings"

	"github.com/hconsed/values/value"
)

// Write emits v's canonical textual form to w. The writer is
// deterministic: structurally equal values of the same dynamic type
// produce byte-identical output, since every value.Value's own
// Print method already normalizes keyword-parameter order and escape
// choice — Write is a thin adapter over it, not a parallel grammar.
// The one exception is keyword parameters: Node and Constructor print
// them, but their structural equality ignores them, so two Equal nodes
// with different keyword values print differently.
func Write(w io.Writer, v value.Value) error {
	var b strings.Builder
	v.Print(&b)
	_, err := io.WriteString(w, b.String())
	return err
}

// String returns v's canonical textual form directly, for callers
// that don't need an io.Writer.
func String(v value.Value) string {
	var b strings.Builder
	v.Print(&b)
	return b.String()
}
