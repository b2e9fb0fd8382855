package hamt

import "errors"

// ErrFrozen is returned by a TransientMap/TransientSet write after
// Freeze has cleared its owner token.
var ErrFrozen = errors.New("hamt: write to a frozen transient")
