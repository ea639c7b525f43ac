package crdt

import "testing"

// -------------------------------------------------------------------------
// Scenario S5: LWW-by-dot resolution
// -------------------------------------------------------------------------
func TestDotKernelSingleLWWResolution(t *testing.T) {
	a := NewDotKernelSingle[string](1)
	seed := a.Set("v1") // dot (1,1)

	b := NewDotKernelSingle[string](2)
	b.Converge(seed)

	update := a.Set("v2") // retires (1,1), adds (1,2)
	b.Converge(update)

	if len(b.Entries) != 1 {
		t.Fatalf("expected exactly one live entry after convergence, got %v", b.Entries)
	}
	for d, v := range b.Entries {
		if d != (Dot{Id: 1, Seq: 2}) || v != "v2" {
			t.Fatalf("expected (1,2)->v2 to win, got %v->%v", d, v)
		}
	}
}

func TestDotKernelSingleAtMostOnePerReplica(t *testing.T) {
	k := NewDotKernelSingle[string](1)
	k.Set("v1")
	k.Set("v2")
	k.Set("v3")

	count := 0
	for d := range k.Entries {
		if d.Id == 1 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected at most one live dot for replica 1, got %d", count)
	}
	if !k.Context.Contains(Dot{Id: 1, Seq: 1}) || !k.Context.Contains(Dot{Id: 1, Seq: 2}) {
		t.Fatalf("expected retired dots to remain in context")
	}
}

func TestDotKernelSingleRoundTrip(t *testing.T) {
	k := NewDotKernelSingle[string](1)
	k.Set("v1")
	k.Set("v2")

	emit := func(out *TokenStream, v string) { *out = append(*out, ValueToken[string]{Value: v}) }
	readV := func(r *TokenReader) (string, error) { return ReadValue[string](r) }

	stream := k.Tokens(emit)
	rebuilt, err := DotKernelSingleFromTokens(NewTokenReader(stream), readV)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(rebuilt.Entries) != len(k.Entries) {
		t.Fatalf("expected %d entries, got %d", len(k.Entries), len(rebuilt.Entries))
	}
	if rebuilt.Converge(k) {
		t.Fatalf("expected converging the original into its round-tripped copy to be a no-op")
	}
}
