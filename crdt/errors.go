package crdt

import "errors"

// ErrMalformedTokens is returned by FromTokens when the leading count is
// wrong for the type, a nested group's count has the wrong parity for a
// key/value sequence, a scalar has the wrong variant, or the stream ends
// prematurely.
var ErrMalformedTokens = errors.New("crdt: malformed token stream")

// ErrOutOfRangeReplica is returned by the Strict mutator variants when
// called against a read-only (id 0) replica. The default mutators instead
// silently no-op and return an empty delta; see DESIGN.md for the choice.
var ErrOutOfRangeReplica = errors.New("crdt: replica id 0 is read-only")
