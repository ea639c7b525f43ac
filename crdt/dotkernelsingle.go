package crdt

// DotKernelSingle has the same causal contract as DotKernel, plus one
// invariant: Entries holds at most one dot per replica id. It is the
// causal memory behind registers whose winner is chosen by dot recency
// (the highest seq for a replica) rather than by wall-clock timestamp.
type DotKernelSingle[V any] struct {
	Id      ReplicaId
	Context *DotContext
	Entries map[Dot]V
}

// NewDotKernelSingle returns an empty kernel owned by id.
func NewDotKernelSingle[V any](id ReplicaId) *DotKernelSingle[V] {
	return &DotKernelSingle[V]{
		Id:      id,
		Context: NewDotContext(),
		Entries: make(map[Dot]V),
	}
}

func emptySingleDelta[V any](id ReplicaId) *DotKernelSingle[V] {
	return &DotKernelSingle[V]{Id: id, Context: NewDotContext(), Entries: make(map[Dot]V)}
}

// Set drops any prior dot this replica owns from Entries (it survives only
// in Context) before inserting the new dot and value. The returned delta
// carries both: the removal of the old dot from its context and the new
// dot/value pair, so a remote merge sees the old value vanish and the new
// one take its place in a single converge.
func (k *DotKernelSingle[V]) Set(value V) *DotKernelSingle[V] {
	if k.Id == ReadOnlyReplica {
		return emptySingleDelta[V](k.Id)
	}
	delta := emptySingleDelta[V](k.Id)

	for d := range k.Entries {
		if d.Id == k.Id {
			delete(k.Entries, d)
			delta.Context.Set(d, false)
		}
	}

	d := k.Context.NextDot(k.Id)
	k.Entries[d] = value
	delta.Context.Set(d, true)
	delta.Entries[d] = value
	return delta
}

// RemoveAll drops every entry, retaining their dots only in Context.
func (k *DotKernelSingle[V]) RemoveAll() *DotKernelSingle[V] {
	delta := emptySingleDelta[V](k.Id)
	for d := range k.Entries {
		delete(k.Entries, d)
		delta.Context.Set(d, false)
	}
	delta.Context.Compact()
	return delta
}

// IsEmpty reports whether the kernel holds no live entries.
func (k *DotKernelSingle[V]) IsEmpty() bool {
	return len(k.Entries) == 0
}

// Clone returns a deep copy: a fresh Context and Entries map.
func (k *DotKernelSingle[V]) Clone() *DotKernelSingle[V] {
	entries := make(map[Dot]V, len(k.Entries))
	for d, v := range k.Entries {
		entries[d] = v
	}
	return &DotKernelSingle[V]{Id: k.Id, Context: k.Context.Clone(), Entries: entries}
}

// Converge applies the same add/remove/history algorithm as DotKernel.
// The at-most-one-per-replica invariant falls out for free: when two
// replicas each hold a dot for the same origin replica r, the one with
// the lower seq is, by construction, already in the other's context (its
// own Set call retired it there before advancing), so step 2 drops it and
// only the higher-seq dot survives.
func (k *DotKernelSingle[V]) Converge(other *DotKernelSingle[V]) bool {
	changed := false

	for d, v := range other.Entries {
		if _, inMap := k.Entries[d]; !inMap && !k.Context.Contains(d) {
			k.Entries[d] = v
			changed = true
		}
	}

	for d := range k.Entries {
		if _, stillPresent := other.Entries[d]; !stillPresent && other.Context.Contains(d) {
			delete(k.Entries, d)
			changed = true
		}
	}

	if k.Context.Converge(other.Context) {
		changed = true
	}
	return changed
}

// Tokens serializes the kernel using DotKernel's schema (3 fields: replica
// id, entries map, context) — DotKernelSingle shares DotKernel's wire form.
func (k *DotKernelSingle[V]) Tokens(emitValue func(*TokenStream, V)) TokenStream {
	var out TokenStream
	out = append(out, CountToken(3), ReplicaToken(k.Id))

	WriteMapHeader(&out, len(k.Entries))
	for d, v := range k.Entries {
		out = append(out, ReplicaToken(d.Id), SeqToken(d.Seq))
		emitValue(&out, v)
	}

	out = append(out, k.Context.Tokens()...)
	return out
}

// DotKernelSingleFromTokens reconstructs a kernel from a reader.
func DotKernelSingleFromTokens[V any](r *TokenReader, readValue func(*TokenReader) (V, error)) (*DotKernelSingle[V], error) {
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

	pairs, err := ReadMapHeader(r)
	if err != nil {
		return nil, err
	}
	entries := make(map[Dot]V, pairs)
	for i := uint64(0); i < pairs; i++ {
		d, err := r.ReadDot()
		if err != nil {
			return nil, err
		}
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		entries[d] = v
	}

	ctx, err := DotContextFromTokens(r)
	if err != nil {
		return nil, err
	}

	return &DotKernelSingle[V]{Id: id, Context: ctx, Entries: entries}, nil
}
