package transport

import (
	"sync"
	"testing"

	"github.com/cdelta/dotcrdt/crdt"
	"github.com/cdelta/dotcrdt/internal/replog"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Envelope
}

func (f *fakeSender) Send(peerURL string, env Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePeers struct{ urls []string }

func (f fakePeers) PeerURLs() []string { return f.urls }

func counterTokens(value uint64) crdt.TokenStream {
	c := crdt.NewGCounter[uint64](1)
	c.Increment(value)
	return c.Tokens()
}

func TestDisseminationReceiveAppliesRegisteredSink(t *testing.T) {
	log := replog.NewReplicaLogger("test")
	sender := &fakeSender{}
	d := New(2, 3, 4, sender, fakePeers{urls: []string{"http://peer-a"}}, log)

	var converged *crdt.GCounter[uint64]
	d.Register("demo.counter", func(tokens crdt.TokenStream) (bool, error) {
		remote, err := crdt.GCounterFromTokens[uint64](crdt.NewTokenReader(tokens))
		if err != nil {
			return false, err
		}
		converged = remote
		return true, nil
	})

	env, err := NewEnvelope(1, "demo.counter", counterTokens(5), 4)
	if err != nil {
		t.Fatalf("unexpected envelope error: %v", err)
	}

	if err := d.Receive(env); err != nil {
		t.Fatalf("Receive should not fail: %v", err)
	}
	if converged == nil || converged.Value() != 5 {
		t.Fatalf("expected sink to observe a counter valued 5, got %v", converged)
	}
	if sender.count() != 1 {
		t.Fatalf("expected the delta to be forwarded once, got %d sends", sender.count())
	}
}

func TestDisseminationReceiveDropsDuplicate(t *testing.T) {
	log := replog.NewReplicaLogger("test")
	sender := &fakeSender{}
	d := New(2, 3, 4, sender, fakePeers{urls: []string{"http://peer-a"}}, log)

	applied := 0
	d.Register("demo.counter", func(tokens crdt.TokenStream) (bool, error) {
		applied++
		return true, nil
	})

	env, err := NewEnvelope(1, "demo.counter", counterTokens(1), 4)
	if err != nil {
		t.Fatalf("unexpected envelope error: %v", err)
	}

	if err := d.Receive(env); err != nil {
		t.Fatalf("first Receive should not fail: %v", err)
	}
	if err := d.Receive(env); err != nil {
		t.Fatalf("second Receive should not fail: %v", err)
	}

	if applied != 1 {
		t.Fatalf("expected the sink to run exactly once, ran %d times", applied)
	}
	if sender.count() != 1 {
		t.Fatalf("expected exactly one forward, got %d", sender.count())
	}
}

func TestDisseminationReceiveDropsExpiredTTL(t *testing.T) {
	log := replog.NewReplicaLogger("test")
	sender := &fakeSender{}
	d := New(2, 3, 4, sender, fakePeers{urls: []string{"http://peer-a"}}, log)

	applied := false
	d.Register("demo.counter", func(tokens crdt.TokenStream) (bool, error) {
		applied = true
		return true, nil
	})

	env, err := NewEnvelope(1, "demo.counter", counterTokens(1), 0)
	if err != nil {
		t.Fatalf("unexpected envelope error: %v", err)
	}

	if err := d.Receive(env); err != nil {
		t.Fatalf("Receive should not fail: %v", err)
	}
	if applied {
		t.Fatal("expected a TTL=0 envelope not to reach the sink")
	}
	if sender.count() != 0 {
		t.Fatalf("expected a TTL=0 envelope not to be forwarded, got %d sends", sender.count())
	}
}

func TestDisseminationPushFansOutToAllPeersWithinCapacity(t *testing.T) {
	log := replog.NewReplicaLogger("test")
	sender := &fakeSender{}
	peers := fakePeers{urls: []string{"http://a", "http://b"}}
	d := New(1, 3, 4, sender, peers, log)

	if err := d.Push("demo.counter", counterTokens(1)); err != nil {
		t.Fatalf("Push should not fail: %v", err)
	}
	if sender.count() != 2 {
		t.Fatalf("expected push to reach both peers (fanout > peer count), got %d", sender.count())
	}
}
