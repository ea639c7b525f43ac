package crdt

import "testing"

// -------------------------------------------------------------------------
// Scenario S1
// -------------------------------------------------------------------------
func TestGCounterScenarioS1(t *testing.T) {
	a := NewGCounter[uint64](1)
	b := NewGCounter[uint64](2)
	c := NewGCounter[uint64](3)

	a.Increment(1)
	b.Increment(2)
	c.Increment(3)

	merge3 := func(x, y, z *GCounter[uint64]) {
		x.Converge(y)
		x.Converge(z)
	}
	merge3(a, b, c)
	merge3(b, a, c)
	merge3(c, a, b)

	if a.Value() != 6 || b.Value() != 6 || c.Value() != 6 {
		t.Fatalf("expected convergence to 6, got a=%d b=%d c=%d", a.Value(), b.Value(), c.Value())
	}

	a.Increment(9)
	b.Increment(8)
	c.Increment(7)
	merge3(a, b, c)
	merge3(b, a, c)
	merge3(c, a, b)

	if a.Value() != 30 || b.Value() != 30 || c.Value() != 30 {
		t.Fatalf("expected convergence to 30, got a=%d b=%d c=%d", a.Value(), b.Value(), c.Value())
	}
}

func TestGCounterConvergeIsMaxMerge(t *testing.T) {
	a := NewGCounter[uint64](1)
	a.data[1] = 5

	delta := NewGCounter[uint64](1)
	delta.data[1] = 3 // stale, lower than what a already has

	if a.Converge(delta) {
		t.Fatalf("expected converging a lower value to report no change")
	}
	if a.Value() != 5 {
		t.Fatalf("expected value to stay at the max, got %d", a.Value())
	}
}

func TestGCounterReadOnlyReplicaIsNoOp(t *testing.T) {
	c := NewGCounter[uint64](ReadOnlyReplica)
	delta := c.Increment(10)

	if c.Value() != 0 {
		t.Fatalf("expected read-only replica to stay at 0, got %d", c.Value())
	}
	if !delta.IsEmpty() {
		t.Fatalf("expected an empty delta from a read-only replica")
	}
}

func TestGCounterTokenRoundTrip(t *testing.T) {
	a := NewGCounter[uint64](1)
	a.Increment(7)

	stream := a.Tokens()
	rebuilt, err := GCounterFromTokens[uint64](NewTokenReader(stream))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if rebuilt.Value() != a.Value() {
		t.Fatalf("expected round-tripped value %d, got %d", a.Value(), rebuilt.Value())
	}
	if rebuilt.Converge(a) {
		t.Fatalf("expected converging the original into its round-tripped copy to be a no-op")
	}
}

func TestGCounterFromTokensRejectsWrongArity(t *testing.T) {
	stream := TokenStream{CountToken(3)}
	_, err := GCounterFromTokens[uint64](NewTokenReader(stream))
	if err != ErrMalformedTokens {
		t.Fatalf("expected ErrMalformedTokens, got %v", err)
	}
}
