package crdt

// CausalValue is the contract an ORMap's values must satisfy: the same
// Convergent shape every other CRDT in this package exposes, so a key
// present on both sides of a map merge converges its nested value instead
// of one side's write silently clobbering the other's.
type CausalValue[V any] interface {
	Converge(other V) bool
	IsEmpty() bool
	Clone() V
}

// ORMap is an observed-remove map whose values are themselves causal
// CRDTs — §2's "maps of CRDTs" component, generalizing the per-dot
// bookkeeping DotKernel uses for plain values to per-key bookkeeping
// where the key's dot tracks the key's own add/remove history while its
// value converges independently and recursively.
type ORMap[K comparable, V CausalValue[V]] struct {
	Id      ReplicaId
	Context *DotContext
	Entries map[K]V

	// dotOf tracks each live key's birth dots as an OR-set: a key is live
	// as long as it has at least one dot the holder hasn't retired. Two
	// replicas can independently mint different birth dots for the same
	// key (concurrent Apply on a key neither has seen yet); Converge
	// unions these sets rather than requiring them to match, so the key
	// — and its nested value — stay live and keep converging on both
	// sides instead of diverging forever.
	dotOf  map[K]map[Dot]struct{}
	newVal func(ReplicaId) V
}

// NewORMap returns an empty map owned by id. newVal constructs a fresh,
// empty nested CRDT the first time a key is written.
func NewORMap[K comparable, V CausalValue[V]](id ReplicaId, newVal func(ReplicaId) V) *ORMap[K, V] {
	return &ORMap[K, V]{
		Id:      id,
		Context: NewDotContext(),
		Entries: make(map[K]V),
		dotOf:   make(map[K]map[Dot]struct{}),
		newVal:  newVal,
	}
}

func emptyORMapDelta[K comparable, V CausalValue[V]](id ReplicaId, newVal func(ReplicaId) V) *ORMap[K, V] {
	return NewORMap[K, V](id, newVal)
}

// Apply gets-or-creates the nested CRDT for key — allocating a fresh dot
// the first time it's written — passes it to mutate, and returns a delta
// carrying the key's full current dot set and up-to-date value. A
// read-only replica (id 0) returns an empty delta and leaves m unchanged.
func (m *ORMap[K, V]) Apply(key K, mutate func(V)) *ORMap[K, V] {
	delta := emptyORMapDelta[K, V](m.Id, m.newVal)
	if m.Id == ReadOnlyReplica {
		return delta
	}

	dots, exists := m.dotOf[key]
	if !exists {
		d := m.Context.NextDot(m.Id)
		dots = map[Dot]struct{}{d: {}}
		m.dotOf[key] = dots
		m.Entries[key] = m.newVal(m.Id)
	}
	mutate(m.Entries[key])

	deltaDots := make(map[Dot]struct{}, len(dots))
	for d := range dots {
		deltaDots[d] = struct{}{}
		delta.Context.Set(d, true)
	}
	delta.dotOf[key] = deltaDots
	delta.Entries[key] = m.Entries[key].Clone()
	return delta
}

// Remove drops key. Its dots stay in Context so a concurrent Apply that
// already observed them is not resurrected by a stale re-merge — the same
// observed-remove contract ORSet.Remove follows. A concurrent Apply that
// minted a dot this replica hasn't observed yet survives the remove once
// merged, per the add-wins contract.
func (m *ORMap[K, V]) Remove(key K) *ORMap[K, V] {
	delta := emptyORMapDelta[K, V](m.Id, m.newVal)
	dots, exists := m.dotOf[key]
	if !exists {
		return delta
	}
	delete(m.dotOf, key)
	delete(m.Entries, key)
	for d := range dots {
		delta.Context.Set(d, true)
	}
	return delta
}

// Get returns the nested CRDT for key, if present.
func (m *ORMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.Entries[key]
	return v, ok
}

// Keys returns the map's current live keys, in no particular order.
func (m *ORMap[K, V]) Keys() []K {
	out := make([]K, 0, len(m.Entries))
	for k := range m.Entries {
		out = append(out, k)
	}
	return out
}

// IsEmpty reports whether the map holds no live keys.
func (m *ORMap[K, V]) IsEmpty() bool { return len(m.Entries) == 0 }

// Clear drops every key, retaining their dots only in Context.
func (m *ORMap[K, V]) Clear() *ORMap[K, V] {
	delta := emptyORMapDelta[K, V](m.Id, m.newVal)
	for key, dots := range m.dotOf {
		delete(m.Entries, key)
		delete(m.dotOf, key)
		for d := range dots {
			delta.Context.Set(d, false)
		}
	}
	delta.Context.Compact()
	return delta
}

// Converge merges other into m:
//  1. Adopt: any dot other holds for a key that m hasn't observed yet
//     (neither currently held nor retired in Context) is unioned into
//     m's dot set for that key — this is what lets two replicas that
//     independently Apply the same unseen key each mint their own birth
//     dot without permanently diverging; the key ends up live with both
//     dots once merged, on both sides.
//  2. Converge: whenever a key is live on both sides (m holds it after
//     step 1, and other still lists it), the nested value converges
//     rather than being overwritten — this is what makes the composition
//     recursive rather than last-writer-wins at the map level, and it
//     runs regardless of whether the two sides share every dot for the
//     key.
//  3. Remove: a key m holds whose every dot other's context has observed,
//     but that other no longer lists, is dropped — any dot other hasn't
//     observed survives the remove (add-wins).
//  4. History: the contexts converge so future merges stay idempotent.
func (m *ORMap[K, V]) Converge(other *ORMap[K, V]) bool {
	changed := false

	for key, otherDots := range other.dotOf {
		dots, ok := m.dotOf[key]
		if !ok {
			dots = make(map[Dot]struct{})
			m.dotOf[key] = dots
		}
		for d := range otherDots {
			if _, known := dots[d]; known {
				continue
			}
			if m.Context.Contains(d) {
				continue
			}
			dots[d] = struct{}{}
			changed = true
		}
		if len(dots) == 0 {
			delete(m.dotOf, key)
			continue
		}

		if mv, ok := m.Entries[key]; ok {
			if mv.Converge(other.Entries[key]) {
				changed = true
			}
		} else {
			// Adopt into a fresh value owned by m.Id, so later local
			// mutations of the nested CRDT mint dots under this replica
			// rather than under the replica the value came from.
			adopted := m.newVal(m.Id)
			adopted.Converge(other.Entries[key])
			m.Entries[key] = adopted
			changed = true
		}
	}

	for key, dots := range m.dotOf {
		if _, stillPresent := other.dotOf[key]; stillPresent {
			continue
		}
		allObserved := true
		for d := range dots {
			if !other.Context.Contains(d) {
				allObserved = false
				break
			}
		}
		if allObserved {
			delete(m.dotOf, key)
			delete(m.Entries, key)
			changed = true
		}
	}

	if m.Context.Converge(other.Context) {
		changed = true
	}
	return changed
}

// Tokens serializes the map as a 3-field group: replica id, then a
// map{K -> (dot set, V)} group, then the context — the same dot-tagged-
// entry shape DotKernel uses, extended with an explicit key and a birth-dot
// set (rather than a single dot) per entry, since a key's liveness is
// itself an OR-set of the dots that created it.
func (m *ORMap[K, V]) Tokens(emitKey func(*TokenStream, K), emitValue func(*TokenStream, V)) TokenStream {
	var out TokenStream
	out = append(out, CountToken(3), ReplicaToken(m.Id))

	WriteMapHeader(&out, len(m.Entries))
	for key, v := range m.Entries {
		emitKey(&out, key)
		dots := make([]Dot, 0, len(m.dotOf[key]))
		for d := range m.dotOf[key] {
			dots = append(dots, d)
		}
		WriteSet(&out, dots, func(out *TokenStream, d Dot) {
			*out = append(*out, ReplicaToken(d.Id), SeqToken(d.Seq))
		})
		emitValue(&out, v)
	}

	out = append(out, m.Context.Tokens()...)
	return out
}

// ORMapFromTokens reconstructs a map from a reader.
func ORMapFromTokens[K comparable, V CausalValue[V]](
	r *TokenReader,
	readKey func(*TokenReader) (K, error),
	readValue func(*TokenReader) (V, error),
	newVal func(ReplicaId) V,
) (*ORMap[K, V], error) {
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
	m := NewORMap[K, V](id, newVal)
	for i := uint64(0); i < pairs; i++ {
		key, err := readKey(r)
		if err != nil {
			return nil, err
		}
		dots, err := ReadSet(r, func(r *TokenReader) (Dot, error) { return r.ReadDot() })
		if err != nil {
			return nil, err
		}
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		dotSet := make(map[Dot]struct{}, len(dots))
		for _, d := range dots {
			dotSet[d] = struct{}{}
		}
		m.dotOf[key] = dotSet
		m.Entries[key] = v
	}

	ctx, err := DotContextFromTokens(r)
	if err != nil {
		return nil, err
	}
	m.Context = ctx

	return m, nil
}
