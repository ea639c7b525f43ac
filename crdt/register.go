package crdt

// MVRegister is a multi-value causal register: Set causally overwrites
// every value this replica has observed, but concurrent Sets from two
// replicas both survive until one replica observes (and so can overwrite)
// the other's write. Built on DotKernel, which gives it that
// observed-remove behavior for free; Values reports every surviving
// concurrent write rather than picking one.
type MVRegister[T any] struct {
	kernel *DotKernel[T]
}

// NewMVRegister returns an empty register owned by id.
func NewMVRegister[T any](id ReplicaId) *MVRegister[T] {
	return &MVRegister[T]{kernel: NewDotKernel[T](id)}
}

// Set removes every value this replica currently observes and writes a
// new one, returning a single delta that carries both: the new dot/value
// pair, and the removed dots folded into the delta's context so a remote
// merge realizes the overwrite. A read-only replica (id 0) returns an
// empty delta and leaves r unmodified.
func (r *MVRegister[T]) Set(value T) *MVRegister[T] {
	if r.kernel.Id == ReadOnlyReplica {
		return &MVRegister[T]{kernel: emptyDelta[T](r.kernel.Id)}
	}
	removeDelta := r.kernel.RemoveAll()
	addDelta := r.kernel.Set(value)
	addDelta.Context.Converge(removeDelta.Context)
	return &MVRegister[T]{kernel: addDelta}
}

// Values returns every value currently surviving in the register — more
// than one iff concurrent writes from different replicas haven't yet
// observed each other.
func (r *MVRegister[T]) Values() []T {
	out := make([]T, 0, len(r.kernel.Entries))
	for _, v := range r.kernel.Entries {
		out = append(out, v)
	}
	return out
}

// IsEmpty reports whether the register currently holds no value.
func (r *MVRegister[T]) IsEmpty() bool { return r.kernel.IsEmpty() }

// Clone returns a deep copy, safe to use as an ORMap value.
func (r *MVRegister[T]) Clone() *MVRegister[T] { return &MVRegister[T]{kernel: r.kernel.Clone()} }

// Clear removes every surviving value.
func (r *MVRegister[T]) Clear() *MVRegister[T] {
	return &MVRegister[T]{kernel: r.kernel.RemoveAll()}
}

// Converge merges other into r.
func (r *MVRegister[T]) Converge(other *MVRegister[T]) bool {
	return r.kernel.Converge(other.kernel)
}

// Tokens serializes the register through its underlying DotKernel.
func (r *MVRegister[T]) Tokens(emitValue func(*TokenStream, T)) TokenStream {
	return r.kernel.Tokens(emitValue)
}

// MVRegisterFromTokens reconstructs a register from a reader.
func MVRegisterFromTokens[T any](r *TokenReader, readValue func(*TokenReader) (T, error)) (*MVRegister[T], error) {
	k, err := DotKernelFromTokens(r, readValue)
	if err != nil {
		return nil, err
	}
	return &MVRegister[T]{kernel: k}, nil
}

// LWWRegister is a causal last-writer-wins register: built on
// DotKernelSingle, so each replica ever holds at most one live dot. Among
// the (at most one-per-replica) surviving entries, Value reports the one
// with the greatest Dot in (Id, Seq) order rather than comparing
// wall-clock timestamps, per spec.md §4.4/§9. Within one origin replica
// that is its latest write; across replicas the entry from the higher
// replica id wins, whether or not it is the causally newer write, since a
// Set retires only the writer's own earlier dot.
type LWWRegister[T any] struct {
	kernel *DotKernelSingle[T]
}

// NewLWWRegister returns an empty register owned by id.
func NewLWWRegister[T any](id ReplicaId) *LWWRegister[T] {
	return &LWWRegister[T]{kernel: NewDotKernelSingle[T](id)}
}

// Set writes value under a fresh dot, retiring this replica's previous
// dot into the context. Returns the resulting delta.
func (r *LWWRegister[T]) Set(value T) *LWWRegister[T] {
	return &LWWRegister[T]{kernel: r.kernel.Set(value)}
}

// Value returns the value under the greatest surviving dot and whether
// the register currently holds any value.
func (r *LWWRegister[T]) Value() (T, bool) {
	var winner T
	var winnerDot Dot
	found := false
	for d, v := range r.kernel.Entries {
		if !found || winnerDot.Less(d) {
			winner, winnerDot, found = v, d, true
		}
	}
	return winner, found
}

// IsEmpty reports whether the register currently holds no value.
func (r *LWWRegister[T]) IsEmpty() bool { return r.kernel.IsEmpty() }

// Clone returns a deep copy, safe to use as an ORMap value.
func (r *LWWRegister[T]) Clone() *LWWRegister[T] { return &LWWRegister[T]{kernel: r.kernel.Clone()} }

// Clear removes every surviving value.
func (r *LWWRegister[T]) Clear() *LWWRegister[T] {
	return &LWWRegister[T]{kernel: r.kernel.RemoveAll()}
}

// Converge merges other into r.
func (r *LWWRegister[T]) Converge(other *LWWRegister[T]) bool {
	return r.kernel.Converge(other.kernel)
}

// Tokens serializes the register through its underlying DotKernelSingle.
func (r *LWWRegister[T]) Tokens(emitValue func(*TokenStream, T)) TokenStream {
	return r.kernel.Tokens(emitValue)
}

// LWWRegisterFromTokens reconstructs a register from a reader.
func LWWRegisterFromTokens[T any](r *TokenReader, readValue func(*TokenReader) (T, error)) (*LWWRegister[T], error) {
	k, err := DotKernelSingleFromTokens(r, readValue)
	if err != nil {
		return nil, err
	}
	return &LWWRegister[T]{kernel: k}, nil
}
