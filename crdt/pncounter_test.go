package crdt

import "testing"

// -------------------------------------------------------------------------
// Scenario S2
// -------------------------------------------------------------------------
func TestPNCounterScenarioS2(t *testing.T) {
	a := NewPNCounter[uint64](1)
	b := NewPNCounter[uint64](2)
	c := NewPNCounter[uint64](3)

	a.Increment(5)
	b.Decrement(2)
	c.Increment(7)

	for _, x := range []*PNCounter[uint64]{a, b, c} {
		for _, y := range []*PNCounter[uint64]{a, b, c} {
			if x != y {
				x.Converge(y)
			}
		}
	}

	if a.Value() != 10 || b.Value() != 10 || c.Value() != 10 {
		t.Fatalf("expected convergence to 10, got a=%d b=%d c=%d", a.Value(), b.Value(), c.Value())
	}
}

func TestPNCounterBasic(t *testing.T) {
	c := NewPNCounter[uint64](1)
	c.Increment(2)
	c.Increment(2)
	c.Decrement(1)

	if c.Value() != 3 {
		t.Fatalf("expected 3, got %d", c.Value())
	}
}

func TestPNCounterCanGoNegative(t *testing.T) {
	c := NewPNCounter[uint64](1)
	c.Decrement(5)

	if c.Value() != -5 {
		t.Fatalf("expected -5, got %d", c.Value())
	}
}

func TestPNCounterTokenRoundTrip(t *testing.T) {
	a := NewPNCounter[uint64](1)
	a.Increment(5)
	a.Decrement(2)

	stream := a.Tokens()
	rebuilt, err := PNCounterFromTokens[uint64](NewTokenReader(stream))
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
