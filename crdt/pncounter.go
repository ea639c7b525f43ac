package crdt

// PNCounter is a positive/negative counter CRDT: a pair of GCounters keyed
// by the same replica ids. Increments bump pos, decrements bump neg, and
// the value is their signed difference — so the counter can go negative
// while each underlying GCounter stays monotonically grow-only, which is
// what keeps the pairwise merge a safe convergence.
type PNCounter[N Unsigned] struct {
	Id  ReplicaId
	pos *GCounter[N]
	neg *GCounter[N]
}

// NewPNCounter returns a zeroed counter owned by id.
func NewPNCounter[N Unsigned](id ReplicaId) *PNCounter[N] {
	return &PNCounter[N]{
		Id:  id,
		pos: NewGCounter[N](id),
		neg: NewGCounter[N](id),
	}
}

// Increment adds n to the counter and returns a delta of the same shape
// (only the pos side populated).
func (c *PNCounter[N]) Increment(n N) *PNCounter[N] {
	delta := NewPNCounter[N](c.Id)
	delta.pos = c.pos.Increment(n)
	return delta
}

// Decrement subtracts n from the counter and returns a delta of the same
// shape (only the neg side populated).
func (c *PNCounter[N]) Decrement(n N) *PNCounter[N] {
	delta := NewPNCounter[N](c.Id)
	delta.neg = c.neg.Increment(n)
	return delta
}

// Value returns Σpos - Σneg, computed in int64 so the result can go
// negative even though N is unsigned. Overflow for sums that do not fit
// in 63 bits is out of scope — see DESIGN.md.
func (c *PNCounter[N]) Value() int64 {
	return int64(c.pos.Value()) - int64(c.neg.Value())
}

// Equal compares counters by value.
func (c *PNCounter[N]) Equal(other *PNCounter[N]) bool {
	return c.Value() == other.Value()
}

// IsEmpty reports whether both sides are empty.
func (c *PNCounter[N]) IsEmpty() bool {
	return c.pos.IsEmpty() && c.neg.IsEmpty()
}

// Clone returns a deep copy, safe to use as an ORMap value.
func (c *PNCounter[N]) Clone() *PNCounter[N] {
	return &PNCounter[N]{Id: c.Id, pos: c.pos.Clone(), neg: c.neg.Clone()}
}

// Converge merges pos and neg independently, same as merging two
// GCounters pairwise.
func (c *PNCounter[N]) Converge(other *PNCounter[N]) bool {
	posChanged := c.pos.Converge(other.pos)
	negChanged := c.neg.Converge(other.neg)
	return posChanged || negChanged
}

// Clear resets both sides locally; like GCounter.Clear, there is nothing
// causally meaningful to propagate.
func (c *PNCounter[N]) Clear() *PNCounter[N] {
	c.pos.Clear()
	c.neg.Clear()
	return NewPNCounter[N](c.Id)
}

// Tokens serializes the counter as PNCounter[N]'s 3-field group: replica
// id, pos data map, neg data map.
func (c *PNCounter[N]) Tokens() TokenStream {
	var out TokenStream
	out = append(out, CountToken(3), ReplicaToken(c.Id))

	posTokens := c.pos.Tokens()
	negTokens := c.neg.Tokens()
	// Strip the nested GCounter framing (count + replica id) — the
	// replica id is already carried at the PNCounter level, and the
	// group count here is implied by the map header that follows.
	out = append(out, posTokens[2:]...)
	out = append(out, negTokens[2:]...)
	return out
}

// PNCounterFromTokens reconstructs a counter from a reader.
func PNCounterFromTokens[N Unsigned](r *TokenReader) (*PNCounter[N], error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	if n != 3 {
		return nil, ErrMalformedTokens
	}
	id, err := r.ReadReplica()
	if err != nil {
		return nil, err
	}

	pos := NewGCounter[N](id)
	pairs, err := ReadMapHeader(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < pairs; i++ {
		rid, err := r.ReadReplica()
		if err != nil {
			return nil, err
		}
		v, err := ReadValue[N](r)
		if err != nil {
			return nil, err
		}
		pos.data[rid] = v
	}

	neg := NewGCounter[N](id)
	pairs, err = ReadMapHeader(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < pairs; i++ {
		rid, err := r.ReadReplica()
		if err != nil {
			return nil, err
		}
		v, err := ReadValue[N](r)
		if err != nil {
			return nil, err
		}
		neg.data[rid] = v
	}

	return &PNCounter[N]{Id: id, pos: pos, neg: neg}, nil
}
