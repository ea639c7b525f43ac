package crdt

// GCounter is a grow-only counter CRDT: a vector of per-replica counts
// whose value is their sum. Each replica only ever increases its own
// slot, so a pairwise max-merge across replicas is always a safe upper
// bound — the counter can never lose an increment it has already seen.
type GCounter[N Unsigned] struct {
	Id   ReplicaId
	data map[ReplicaId]N
}

// NewGCounter returns a zeroed counter owned by id.
func NewGCounter[N Unsigned](id ReplicaId) *GCounter[N] {
	return &GCounter[N]{Id: id, data: make(map[ReplicaId]N)}
}

// Increment adds n to this replica's slot and returns a delta carrying
// only that slot's new value. A read-only replica (id 0) is a no-op and
// returns an empty delta.
func (c *GCounter[N]) Increment(n N) *GCounter[N] {
	delta := NewGCounter[N](c.Id)
	if c.Id == ReadOnlyReplica {
		return delta
	}
	c.data[c.Id] += n
	delta.data[c.Id] = c.data[c.Id]
	return delta
}

// Value sums every replica's slot.
func (c *GCounter[N]) Value() N {
	var sum N
	for _, v := range c.data {
		sum += v
	}
	return sum
}

// Equal compares counters by value, not structure — two counters with
// different replica slots that happen to sum to the same total are equal
// under this comparison. Use Converge for the structural, convergence
// notion of equivalence.
func (c *GCounter[N]) Equal(other *GCounter[N]) bool {
	return c.Value() == other.Value()
}

// IsEmpty reports whether every slot is zero (equivalently, no replica has
// incremented yet, since a slot is only ever created by its own replica).
func (c *GCounter[N]) IsEmpty() bool {
	for _, v := range c.data {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy, safe to use as an ORMap value.
func (c *GCounter[N]) Clone() *GCounter[N] {
	data := make(map[ReplicaId]N, len(c.data))
	for id, v := range c.data {
		data[id] = v
	}
	return &GCounter[N]{Id: c.Id, data: data}
}

// Converge takes the per-replica max of every slot in other. It returns
// true iff any slot grew.
func (c *GCounter[N]) Converge(other *GCounter[N]) bool {
	changed := false
	for id, v := range other.data {
		if v > c.data[id] {
			c.data[id] = v
			changed = true
		}
	}
	return changed
}

// Clear zeroes the counter locally and returns a no-op delta: grow-only
// counters cannot causally un-grow, so clearing is a local reset with
// nothing to propagate (merging this delta into any replica is a no-op).
func (c *GCounter[N]) Clear() *GCounter[N] {
	c.data = make(map[ReplicaId]N)
	return NewGCounter[N](c.Id)
}

// Tokens serializes the counter as GCounter[N]'s 2-field group: replica id,
// then the per-replica data map.
func (c *GCounter[N]) Tokens() TokenStream {
	var out TokenStream
	out = append(out, CountToken(2), ReplicaToken(c.Id))
	WriteMapHeader(&out, len(c.data))
	for id, v := range c.data {
		out = append(out, ReplicaToken(id), ValueToken[N]{Value: v})
	}
	return out
}

// GCounterFromTokens reconstructs a counter from a reader.
func GCounterFromTokens[N Unsigned](r *TokenReader) (*GCounter[N], error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, ErrMalformedTokens
	}
	id, err := r.ReadReplica()
	if err != nil {
		return nil, err
	}
	pairs, err := ReadMapHeader(r)
	if err != nil {
		return nil, err
	}
	c := NewGCounter[N](id)
	for i := uint64(0); i < pairs; i++ {
		rid, err := r.ReadReplica()
		if err != nil {
			return nil, err
		}
		v, err := ReadValue[N](r)
		if err != nil {
			return nil, err
		}
		c.data[rid] = v
	}
	return c, nil
}
