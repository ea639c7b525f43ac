package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/cdelta/dotcrdt/crdt"
)

// Envelope wraps an encoded delta with the metadata TTL-bounded gossip
// dissemination needs: an ID for deduplication, a hop budget, and the
// sending replica's identity.
type Envelope struct {
	ID       uuid.UUID      `json:"id"`
	TTL      int            `json:"ttl"`
	Sender   crdt.ReplicaId `json:"sender"`
	CRDTName string         `json:"crdt_name"` // routes the payload to the right Converge call on receipt
	Tokens   []byte         `json:"tokens"`    // msgpack-encoded crdt.TokenStream
	SentAt   int64          `json:"sent_at"`   // unix millis, diagnostic only — never used for conflict resolution
}

// NewEnvelope encodes stream and wraps it for dissemination from sender
// under crdtName, with the given hop budget.
func NewEnvelope(sender crdt.ReplicaId, crdtName string, stream crdt.TokenStream, ttl int) (Envelope, error) {
	tokens, err := EncodeTokens(stream)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:       uuid.New(),
		TTL:      ttl,
		Sender:   sender,
		CRDTName: crdtName,
		Tokens:   tokens,
		SentAt:   time.Now().UnixMilli(),
	}, nil
}

// Decode recovers the envelope's token stream.
func (e Envelope) Decode() (crdt.TokenStream, error) {
	return DecodeTokens(e.Tokens)
}

// Forwarded returns a copy of e with TTL decremented and Sender reassigned,
// ready to relay to the next hop. Callers must check TTL > 0 first.
func (e Envelope) Forwarded(newSender crdt.ReplicaId) Envelope {
	e.TTL--
	e.Sender = newSender
	return e
}
