package crdt

// DotKernel is the causal memory shared by every observed-remove CRDT in
// this package (sets, maps, multi-value registers): a DotContext recording
// every event ever observed, plus a map from live dots to their values.
// A dot can be in Context without being in the map — that represents an
// event whose value has been removed but whose causal existence must still
// suppress stale concurrent re-additions.
type DotKernel[V any] struct {
	Id      ReplicaId
	Context *DotContext
	Entries map[Dot]V
}

// NewDotKernel returns an empty kernel owned by id.
func NewDotKernel[V any](id ReplicaId) *DotKernel[V] {
	return &DotKernel[V]{
		Id:      id,
		Context: NewDotContext(),
		Entries: make(map[Dot]V),
	}
}

func emptyDelta[V any](id ReplicaId) *DotKernel[V] {
	return &DotKernel[V]{Id: id, Context: NewDotContext(), Entries: make(map[Dot]V)}
}

// Set allocates a fresh dot, records value under it, and returns a delta
// kernel containing only that dot and value. A read-only replica (id 0)
// returns an empty delta and leaves k unmodified.
func (k *DotKernel[V]) Set(value V) *DotKernel[V] {
	if k.Id == ReadOnlyReplica {
		return emptyDelta[V](k.Id)
	}
	d := k.Context.NextDot(k.Id)
	k.Entries[d] = value
	delta := emptyDelta[V](k.Id)
	delta.Context.Set(d, true)
	delta.Entries[d] = value
	return delta
}

// RemoveValue drops every entry whose value equals v according to eq. The
// returned delta's context collects the dropped dots (so remote replicas
// that have seen this kernel's prior state can realize the removal); its
// map stays empty, matching the observed-remove contract.
func (k *DotKernel[V]) RemoveValue(v V, eq func(a, b V) bool) *DotKernel[V] {
	delta := emptyDelta[V](k.Id)
	for d, existing := range k.Entries {
		if eq(existing, v) {
			delete(k.Entries, d)
			delta.Context.Set(d, false)
		}
	}
	delta.Context.Compact()
	return delta
}

// RemoveAll drops every entry in the kernel.
func (k *DotKernel[V]) RemoveAll() *DotKernel[V] {
	delta := emptyDelta[V](k.Id)
	for d := range k.Entries {
		delete(k.Entries, d)
		delta.Context.Set(d, false)
	}
	delta.Context.Compact()
	return delta
}

// IsEmpty reports whether the kernel holds no live entries.
func (k *DotKernel[V]) IsEmpty() bool {
	return len(k.Entries) == 0
}

// Clone returns a copy with a fresh Context and Entries map; the entry
// values themselves are copied as-is. Used by ORSet.Clone and
// MVRegister.Clone when those CRDTs are nested as ORMap values, so handing
// out a snapshot never lets a later local mutation of the kernel leak into
// an already-shipped delta or another replica's state.
func (k *DotKernel[V]) Clone() *DotKernel[V] {
	entries := make(map[Dot]V, len(k.Entries))
	for d, v := range k.Entries {
		entries[d] = v
	}
	return &DotKernel[V]{Id: k.Id, Context: k.Context.Clone(), Entries: entries}
}

// Converge merges other (a delta or a full kernel) into k:
//  1. Add: any dot in other.Entries that k hasn't seen (neither in
//     k.Entries nor k.Context) is adopted.
//  2. Remove: any dot k currently holds that other has seen (it's in
//     other.Context) but no longer retains is dropped — this is the
//     observed-remove rule.
//  3. History: the contexts converge so future merges stay idempotent.
func (k *DotKernel[V]) Converge(other *DotKernel[V]) bool {
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

// Tokens serializes the kernel as DotKernel[V]'s 3-field group: replica id,
// then the entries map, then the context.
func (k *DotKernel[V]) Tokens(emitValue func(*TokenStream, V)) TokenStream {
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

// DotKernelFromTokens reconstructs a kernel from a reader, using readValue
// to decode each entry's scalar.
func DotKernelFromTokens[V any](r *TokenReader, readValue func(*TokenReader) (V, error)) (*DotKernel[V], error) {
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

	return &DotKernel[V]{Id: id, Context: ctx, Entries: entries}, nil
}
