// Package transport carries CRDT deltas between replicad nodes: it encodes a
// crdt.TokenStream to bytes, wraps it with dissemination metadata (an ID for
// deduplication, a TTL, the sending replica), and pushes it over HTTP to
// peers discovered through internal/cluster.
package transport

import (
	"bytes"
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/cdelta/dotcrdt/crdt"
)

var msgpackHandle codec.MsgpackHandle

const (
	kindCount byte = iota
	kindReplica
	kindSeq
	kindValue
)

// wireToken is the byte-oriented shadow of crdt.Token: msgpack can encode
// any of Value's concrete dynamic types (string, float64, uint64, ...)
// through its interface{} field, but nothing here knows the CRDT's static
// element type T — that's recovered on read via crdt.ReadValue's type
// assertion against RawValueToken.
type wireToken struct {
	Kind   byte
	Scalar uint64
	Value  interface{} `codec:",omitempty"`
}

// EncodeTokens serializes a token stream to msgpack bytes for wire
// transmission.
func EncodeTokens(stream crdt.TokenStream) ([]byte, error) {
	wire := make([]wireToken, 0, len(stream))
	for _, t := range stream {
		switch v := t.(type) {
		case crdt.CountToken:
			wire = append(wire, wireToken{Kind: kindCount, Scalar: uint64(v)})
		case crdt.ReplicaToken:
			wire = append(wire, wireToken{Kind: kindReplica, Scalar: uint64(v)})
		case crdt.SeqToken:
			wire = append(wire, wireToken{Kind: kindSeq, Scalar: uint64(v)})
		default:
			val, ok := scalarValue(t)
			if !ok {
				return nil, crdt.ErrMalformedTokens
			}
			wire = append(wire, wireToken{Kind: kindValue, Value: val})
		}
	}

	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, &msgpackHandle)
	if err := enc.Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTokens reconstructs a token stream from bytes produced by
// EncodeTokens. Value tokens come back as crdt.RawValueToken, not
// crdt.ValueToken[T] — the generic element type doesn't survive the wire.
func DecodeTokens(data []byte) (crdt.TokenStream, error) {
	var wire []wireToken
	dec := codec.NewDecoder(bytes.NewReader(data), &msgpackHandle)
	if err := dec.Decode(&wire); err != nil {
		return nil, err
	}

	stream := make(crdt.TokenStream, 0, len(wire))
	for _, w := range wire {
		switch w.Kind {
		case kindCount:
			stream = append(stream, crdt.CountToken(w.Scalar))
		case kindReplica:
			stream = append(stream, crdt.ReplicaToken(w.Scalar))
		case kindSeq:
			stream = append(stream, crdt.SeqToken(w.Scalar))
		case kindValue:
			stream = append(stream, crdt.RawValueToken{Value: w.Value})
		default:
			return nil, crdt.ErrMalformedTokens
		}
	}
	return stream, nil
}

// scalarValue extracts a crdt.ValueToken[T]'s Value field generically via
// reflection, since T varies per call site and Go forbids a type switch
// over every instantiation of a generic type.
func scalarValue(t crdt.Token) (interface{}, bool) {
	rv := reflect.ValueOf(t)
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	f := rv.FieldByName("Value")
	if !f.IsValid() {
		return nil, false
	}
	return f.Interface(), true
}
