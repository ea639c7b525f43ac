package crdt

// Token is the wire-format primitive every CRDT in this package serializes
// through: either an unsigned count (the arity of a top-level or nested
// group) or a scalar drawn from the CRDT's value union (ReplicaId, SeqNum,
// or the CRDT's element type).
//
// A token stream is a tree of counted groups whose leaves are scalars: a
// count token k, followed by k fields, where a field is itself either a
// scalar or a nested group (its own count token followed by its members).
// A parser that knows the schema (the fixed field arities documented on
// each type's Tokens method) can reconstruct the value from the stream
// alone.
type Token interface{ isToken() }

// CountToken announces the arity of the group that follows it.
type CountToken uint64

func (CountToken) isToken() {}

// ReplicaToken carries a ReplicaId scalar.
type ReplicaToken ReplicaId

func (ReplicaToken) isToken() {}

// SeqToken carries a SeqNum scalar.
type SeqToken SeqNum

func (SeqToken) isToken() {}

// ValueToken carries one scalar of the CRDT's element type T.
type ValueToken[T any] struct{ Value T }

func (ValueToken[T]) isToken() {}

// RawValueToken carries a scalar whose static type T was lost crossing a
// byte-oriented transport (see transport.DecodeTokens) and is recovered by
// type assertion in ReadValue instead of by the compiler.
type RawValueToken struct{ Value interface{} }

func (RawValueToken) isToken() {}

// TokenStream is the flattened, ordered sequence every producer emits and
// every consumer walks. It has no framing beyond the token boundaries
// themselves; transports are free to wrap it however they like (see
// transport.Envelope for this module's JSON wrapping).
type TokenStream []Token

// TokenReader walks a TokenStream left to right. Each Read* method consumes
// the token it inspects, whether or not it has the expected variant; a
// reader that has already failed keeps returning ErrMalformedTokens so
// callers can chain calls without checking every intermediate error.
type TokenReader struct {
	stream TokenStream
	pos    int
	failed bool
}

// NewTokenReader wraps a stream for sequential consumption.
func NewTokenReader(s TokenStream) *TokenReader {
	return &TokenReader{stream: s}
}

func (r *TokenReader) fail() (Token, error) {
	r.failed = true
	return nil, ErrMalformedTokens
}

func (r *TokenReader) next() (Token, error) {
	if r.failed || r.pos >= len(r.stream) {
		return r.fail()
	}
	t := r.stream[r.pos]
	r.pos++
	return t, nil
}

// ReadCount reads the next token, requiring it to be a CountToken.
func (r *TokenReader) ReadCount() (uint64, error) {
	t, err := r.next()
	if err != nil {
		return 0, err
	}
	c, ok := t.(CountToken)
	if !ok {
		_, _ = r.fail()
		return 0, ErrMalformedTokens
	}
	return uint64(c), nil
}

// ReadReplica reads the next token, requiring it to be a ReplicaToken.
func (r *TokenReader) ReadReplica() (ReplicaId, error) {
	t, err := r.next()
	if err != nil {
		return 0, err
	}
	v, ok := t.(ReplicaToken)
	if !ok {
		_, _ = r.fail()
		return 0, ErrMalformedTokens
	}
	return ReplicaId(v), nil
}

// ReadSeq reads the next token, requiring it to be a SeqToken.
func (r *TokenReader) ReadSeq() (SeqNum, error) {
	t, err := r.next()
	if err != nil {
		return 0, err
	}
	v, ok := t.(SeqToken)
	if !ok {
		_, _ = r.fail()
		return 0, ErrMalformedTokens
	}
	return SeqNum(v), nil
}

// ReadDot reads a (ReplicaToken, SeqToken) pair as a Dot.
func (r *TokenReader) ReadDot() (Dot, error) {
	id, err := r.ReadReplica()
	if err != nil {
		return Dot{}, err
	}
	seq, err := r.ReadSeq()
	if err != nil {
		return Dot{}, err
	}
	return Dot{Id: id, Seq: seq}, nil
}

// Done reports whether the stream has been fully consumed without error.
func (r *TokenReader) Done() bool {
	return !r.failed && r.pos == len(r.stream)
}

// ReadValue reads the next token, requiring it to be a ValueToken[T] or a
// RawValueToken whose dynamic value is assertable to T.
func ReadValue[T any](r *TokenReader) (T, error) {
	var zero T
	t, err := r.next()
	if err != nil {
		return zero, err
	}
	switch v := t.(type) {
	case ValueToken[T]:
		return v.Value, nil
	case RawValueToken:
		if val, ok := v.Value.(T); ok {
			return val, nil
		}
	}
	_, _ = r.fail()
	return zero, ErrMalformedTokens
}

// WriteSet appends a set{D} group: a count k followed by k copies of D,
// each serialized by emit.
func WriteSet[D any](out *TokenStream, items []D, emit func(*TokenStream, D)) {
	*out = append(*out, CountToken(uint64(len(items))))
	for _, d := range items {
		emit(out, d)
	}
}

// ReadSet consumes a set{D} group produced by WriteSet.
func ReadSet[D any](r *TokenReader, readD func(*TokenReader) (D, error)) ([]D, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	items := make([]D, 0, n)
	for i := uint64(0); i < n; i++ {
		d, err := readD(r)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

// WriteMapHeader appends the count token for a map{K->V} group of n pairs:
// 2n, per §6. Callers then emit each key followed by its value.
func WriteMapHeader(out *TokenStream, n int) {
	*out = append(*out, CountToken(uint64(2*n)))
}

// ReadMapHeader reads a map{K->V} group's count and returns the number of
// pairs it holds, rejecting a count with the wrong parity.
func ReadMapHeader(r *TokenReader) (uint64, error) {
	n, err := r.ReadCount()
	if err != nil {
		return 0, err
	}
	if n%2 != 0 {
		r.failed = true
		return 0, ErrMalformedTokens
	}
	return n / 2, nil
}
