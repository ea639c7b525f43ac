package transport

import (
	"testing"

	"github.com/cdelta/dotcrdt/crdt"
)

func TestEncodeDecodeTokensRoundTrip(t *testing.T) {
	counter := crdt.NewGCounter[uint64](1)
	counter.Increment(7)
	stream := counter.Tokens()

	data, err := EncodeTokens(stream)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	decoded, err := DecodeTokens(data)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	rebuilt, err := crdt.GCounterFromTokens[uint64](crdt.NewTokenReader(decoded))
	if err != nil {
		t.Fatalf("unexpected error reconstructing counter: %v", err)
	}
	if rebuilt.Value() != counter.Value() {
		t.Fatalf("expected round-tripped value %d, got %d", counter.Value(), rebuilt.Value())
	}
}

func TestDecodeTokensRejectsGarbage(t *testing.T) {
	if _, err := DecodeTokens([]byte("not msgpack")); err == nil {
		t.Fatal("expected an error decoding garbage bytes")
	}
}

func TestEncodeTokensPreservesOrder(t *testing.T) {
	set := crdt.NewORSet[string](1)
	set.Add("alpha")
	set.Add("beta")
	stream := set.Tokens(func(out *crdt.TokenStream, v string) {
		*out = append(*out, crdt.ValueToken[string]{Value: v})
	})

	data, err := EncodeTokens(stream)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	decoded, err := DecodeTokens(data)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(decoded) != len(stream) {
		t.Fatalf("expected %d tokens, got %d", len(stream), len(decoded))
	}

	rebuilt, err := crdt.ORSetFromTokens(crdt.NewTokenReader(decoded), func(r *crdt.TokenReader) (string, error) {
		return crdt.ReadValue[string](r)
	})
	if err != nil {
		t.Fatalf("unexpected error reconstructing set: %v", err)
	}
	if !rebuilt.Contains("alpha") || !rebuilt.Contains("beta") {
		t.Fatalf("expected round-tripped set to contain both elements, got %v", rebuilt.Elements())
	}
}
