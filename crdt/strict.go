package crdt

// The adding mutators (DotKernel.Set, DotKernelSingle.Set, ORSet.Add,
// MVRegister.Set, LWWRegister.Set, ORMap.Apply, GCounter.Increment, and
// PNCounter.Increment/Decrement) silently no-op on a read-only (id 0)
// replica and return an empty delta, per the first of §9's two acceptable
// read-only policies. The removing mutators (RemoveValue, RemoveAll,
// Remove, Clear) do not check the replica id: on a read-only replica they
// drop entries and return a removal delta as on any other replica. The
// functions below offer the second policy for some adding mutators: an
// explicit ErrOutOfRangeReplica for callers that would rather fail loudly
// than risk mistaking a silent no-op for a successful write. The silent
// no-op is covered by TestGCounterReadOnlyReplicaIsNoOp; the Strict
// variants have no test of their own. See DESIGN.md.

// AddStrict is ORSet.Add, but returns ErrOutOfRangeReplica instead of an
// empty delta when s is read-only.
func AddStrict[T comparable](s *ORSet[T], value T) (*ORSet[T], error) {
	if s.kernel.Id == ReadOnlyReplica {
		return nil, ErrOutOfRangeReplica
	}
	return s.Add(value), nil
}

// IncrementStrict is GCounter.Increment, but returns ErrOutOfRangeReplica
// instead of an empty delta when c is read-only.
func IncrementStrict[N Unsigned](c *GCounter[N], n N) (*GCounter[N], error) {
	if c.Id == ReadOnlyReplica {
		return nil, ErrOutOfRangeReplica
	}
	return c.Increment(n), nil
}

// PNIncrementStrict is PNCounter.Increment, but returns
// ErrOutOfRangeReplica instead of an empty delta when c is read-only.
func PNIncrementStrict[N Unsigned](c *PNCounter[N], n N) (*PNCounter[N], error) {
	if c.Id == ReadOnlyReplica {
		return nil, ErrOutOfRangeReplica
	}
	return c.Increment(n), nil
}

// PNDecrementStrict is PNCounter.Decrement, but returns
// ErrOutOfRangeReplica instead of an empty delta when c is read-only.
func PNDecrementStrict[N Unsigned](c *PNCounter[N], n N) (*PNCounter[N], error) {
	if c.Id == ReadOnlyReplica {
		return nil, ErrOutOfRangeReplica
	}
	return c.Decrement(n), nil
}
