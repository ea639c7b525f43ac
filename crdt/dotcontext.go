package crdt

// DotContext compactly represents every dot any replica has ever observed.
// It keeps, per replica id, a dense prefix [1..dense[r]] of contiguous
// seqs, plus a gap set of later, non-contiguous dots observed out of
// order. Compaction folds any contiguous suffix of the gap set into the
// dense prefix, so the common case (sequential delivery) costs O(1) space
// per replica and the out-of-order case costs O(gap size).
type DotContext struct {
	dense map[ReplicaId]SeqNum
	gaps  map[Dot]struct{}
}

// NewDotContext returns an empty context.
func NewDotContext() *DotContext {
	return &DotContext{
		dense: make(map[ReplicaId]SeqNum),
		gaps:  make(map[Dot]struct{}),
	}
}

// Contains reports whether d has already been observed: either it falls
// within the dense prefix for its replica, or it is held in the gap set.
func (c *DotContext) Contains(d Dot) bool {
	if max, ok := c.dense[d.Id]; ok && d.Seq <= max {
		return true
	}
	_, inGaps := c.gaps[d]
	return inGaps
}

// Set inserts d into the gap set. When compactNow is true (the common
// case), it immediately runs Compact so the dense prefix absorbs any
// contiguous run the insertion completed.
func (c *DotContext) Set(d Dot, compactNow bool) {
	if d.Seq != 0 && d.Seq <= c.dense[d.Id] {
		return
	}
	c.gaps[d] = struct{}{}
	if compactNow {
		c.Compact()
	}
}

// NextDot allocates the next unused seq for replica r: the smallest seq
// not already contained, accounting for any contiguous run already
// sitting in the gap set. The new dot is inserted and the context is
// compacted before returning.
func (c *DotContext) NextDot(r ReplicaId) Dot {
	seq := c.dense[r] + 1
	for {
		if _, ok := c.gaps[Dot{Id: r, Seq: seq}]; !ok {
			break
		}
		seq++
	}
	d := Dot{Id: r, Seq: seq}
	c.Set(d, true)
	return d
}

// Compact folds any contiguous suffix of the gap set into the dense
// prefix, replica by replica, until no more progress can be made.
func (c *DotContext) Compact() {
	for {
		progressed := false
		for d := range c.gaps {
			if d.Seq == c.dense[d.Id]+1 {
				c.dense[d.Id] = d.Seq
				delete(c.gaps, d)
				progressed = true
			} else if d.Seq <= c.dense[d.Id] {
				delete(c.gaps, d)
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// Converge unions the dense prefixes by max and the gap sets, then
// compacts. It reports whether any entry grew.
func (c *DotContext) Converge(other *DotContext) bool {
	changed := false
	for id, seq := range other.dense {
		if seq > c.dense[id] {
			c.dense[id] = seq
			changed = true
		}
	}
	for d := range other.gaps {
		if _, ok := c.gaps[d]; !ok {
			if !c.Contains(d) {
				changed = true
			}
			c.gaps[d] = struct{}{}
		}
	}
	c.Compact()
	return changed
}

// IsEmpty reports whether the context has observed no dots at all.
func (c *DotContext) IsEmpty() bool {
	return len(c.dense) == 0 && len(c.gaps) == 0
}

// Clone returns a deep copy, used when a mutator needs to hand a delta its
// own context rather than alias the source's maps.
func (c *DotContext) Clone() *DotContext {
	n := NewDotContext()
	for id, seq := range c.dense {
		n.dense[id] = seq
	}
	for d := range c.gaps {
		n.gaps[d] = struct{}{}
	}
	return n
}

// Tokens serializes the context as DotContext's 2-field group: the dense
// map then the gap set, per SPEC_FULL.md §1 / spec §6.
func (c *DotContext) Tokens() TokenStream {
	var out TokenStream
	out = append(out, CountToken(2))

	WriteMapHeader(&out, len(c.dense))
	for id, seq := range c.dense {
		out = append(out, ReplicaToken(id), SeqToken(seq))
	}

	gapDots := make([]Dot, 0, len(c.gaps))
	for d := range c.gaps {
		gapDots = append(gapDots, d)
	}
	WriteSet(&out, gapDots, func(out *TokenStream, d Dot) {
		*out = append(*out, ReplicaToken(d.Id), SeqToken(d.Seq))
	})
	return out
}

// DotContextFromTokens reconstructs a context from a reader positioned at
// its leading count token.
func DotContextFromTokens(r *TokenReader) (*DotContext, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, ErrMalformedTokens
	}

	pairs, err := ReadMapHeader(r)
	if err != nil {
		return nil, err
	}
	c := NewDotContext()
	for i := uint64(0); i < pairs; i++ {
		id, err := r.ReadReplica()
		if err != nil {
			return nil, err
		}
		seq, err := r.ReadSeq()
		if err != nil {
			return nil, err
		}
		c.dense[id] = seq
	}

	gapDots, err := ReadSet(r, func(r *TokenReader) (Dot, error) { return r.ReadDot() })
	if err != nil {
		return nil, err
	}
	for _, d := range gapDots {
		c.gaps[d] = struct{}{}
	}
	return c, nil
}
