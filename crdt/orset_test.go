package crdt

import "testing"

func elementSet(s *ORSet[string]) map[string]struct{} {
	out := make(map[string]struct{})
	for _, v := range s.Elements() {
		out[v] = struct{}{}
	}
	return out
}

func mapsEqualSets(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// -------------------------------------------------------------------------
// 1. Add & Remove (mutators apply locally and return a delta for peers)
// -------------------------------------------------------------------------
func TestORSetAddRemove(t *testing.T) {
	s := NewORSet[string](1)
	s.Add("go")

	if !s.Contains("go") {
		t.Fatalf("expected to contain 'go' after Add")
	}

	s.Remove("go")
	if s.Contains("go") {
		t.Fatalf("expected not to contain 'go' after Remove")
	}
}

// -------------------------------------------------------------------------
// 2. Add-wins vs concurrent Remove
// -------------------------------------------------------------------------
func TestORSetAddWinsConcurrent(t *testing.T) {
	seed := NewORSet[string](99)
	seedDelta := seed.Add("x")

	a := NewORSet[string](1)
	b := NewORSet[string](2)
	a.Converge(seedDelta)
	b.Converge(seedDelta)

	deltaAdd := a.Add("x")       // new dot from a -> concurrent add
	deltaRemove := b.Remove("x") // removes only the dot b has observed

	a.Converge(deltaRemove)
	b.Converge(deltaAdd)

	if !a.Contains("x") {
		t.Fatalf("expected add to win over concurrent remove on a")
	}
	if !b.Contains("x") {
		t.Fatalf("expected add to win over concurrent remove on b")
	}
}

// -------------------------------------------------------------------------
// 3. Universal laws
// -------------------------------------------------------------------------
func TestORSetCommutative(t *testing.T) {
	build := func() (*ORSet[string], *ORSet[string]) {
		a := NewORSet[string](1)
		da := a.Add("x")
		b := NewORSet[string](2)
		db := b.Add("y")
		return da, db
	}

	da, db := build()
	x := NewORSet[string](3)
	x.Converge(da)
	x.Converge(db)

	da2, db2 := build()
	y := NewORSet[string](3)
	y.Converge(db2)
	y.Converge(da2)

	if !mapsEqualSets(elementSet(x), elementSet(y)) {
		t.Fatalf("expected commutative merges to agree: %v vs %v", elementSet(x), elementSet(y))
	}
}

func TestORSetSelfMergeIsIdentity(t *testing.T) {
	s := NewORSet[string](1)
	s.Add("x")

	if s.Converge(s) {
		t.Fatalf("expected self-merge to report no change")
	}
}

func TestORSetTokenRoundTrip(t *testing.T) {
	s := NewORSet[string](1)
	s.Add("x")
	s.Add("y")

	emit := func(out *TokenStream, v string) { *out = append(*out, ValueToken[string]{Value: v}) }
	readV := func(r *TokenReader) (string, error) { return ReadValue[string](r) }

	stream := s.Tokens(emit)
	rebuilt, err := ORSetFromTokens(NewTokenReader(stream), readV)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !mapsEqualSets(elementSet(s), elementSet(rebuilt)) {
		t.Fatalf("expected round-tripped set to match original")
	}
	if rebuilt.Converge(s) {
		t.Fatalf("expected converging the original into its round-tripped copy to be a no-op")
	}
}
