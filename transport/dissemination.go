package transport

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/cdelta/dotcrdt/crdt"
	"github.com/cdelta/dotcrdt/internal/replog"
)

// PeerSource supplies the current set of peer base URLs — internal/cluster
// implements it over memberlist's membership view.
type PeerSource interface {
	PeerURLs() []string
}

// Sink applies a received, already-decoded delta's tokens to local state;
// the caller supplies one closure per CRDT it wants to expose over gossip.
type Sink func(tokens crdt.TokenStream) (changed bool, err error)

// Dissemination pushes outgoing deltas to a random fanout of peers with a
// decrementing TTL, and deduplicates deltas it receives from more than one
// hop before applying them.
type Dissemination struct {
	self   crdt.ReplicaId
	fanout int
	ttl    int
	sender Sender
	peers  PeerSource
	cache  *dedupCache
	log    *replog.ReplicaLogger

	mu    sync.RWMutex
	sinks map[string]Sink

	stopCh  chan struct{}
	running bool
}

// New returns a Dissemination system that has not yet been started.
func New(self crdt.ReplicaId, fanout, ttl int, sender Sender, peers PeerSource, log *replog.ReplicaLogger) *Dissemination {
	return &Dissemination{
		self:   self,
		fanout: fanout,
		ttl:    ttl,
		sender: sender,
		peers:  peers,
		cache:  newDedupCache(10000),
		log:    log,
		sinks:  make(map[string]Sink),
	}
}

// Register wires crdtName's decoded-delta handler — called once per CRDT a
// node gossips (e.g. "inventory.gcounter", "tags.ormap").
func (d *Dissemination) Register(crdtName string, sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[crdtName] = sink
}

// Push encodes stream as a fresh envelope for crdtName and fans it out.
func (d *Dissemination) Push(crdtName string, stream crdt.TokenStream) error {
	env, err := NewEnvelope(d.self, crdtName, stream, d.ttl)
	if err != nil {
		return err
	}
	d.cache.mark(env.ID)
	return d.forward(env)
}

// Receive processes an envelope that arrived over HTTP: it deduplicates,
// applies the delta to the registered sink, and — if the TTL allows —
// relays it onward.
func (d *Dissemination) Receive(env Envelope) error {
	if d.cache.seen(env.ID) {
		d.log.LogDeltaDropped("duplicate")
		return nil
	}
	d.cache.mark(env.ID)

	if env.TTL <= 0 {
		d.log.LogDeltaDropped("ttl_expired")
		return nil
	}

	tokens, err := env.Decode()
	if err != nil {
		d.log.LogDeltaDropped("malformed")
		return err
	}
	d.log.LogDeltaReceived(strconv.FormatUint(uint64(env.Sender), 10), len(tokens))

	d.mu.RLock()
	sink, ok := d.sinks[env.CRDTName]
	d.mu.RUnlock()
	if ok {
		start := time.Now()
		changed, err := sink(tokens)
		if err != nil {
			d.log.LogError("dissemination.sink", err)
			return err
		}
		d.log.LogConverge(env.CRDTName, changed, time.Since(start))
	}

	return d.forward(env.Forwarded(d.self))
}

func (d *Dissemination) forward(env Envelope) error {
	if env.TTL <= 0 {
		return nil
	}
	targets := d.sampleFanout()
	if len(targets) == 0 {
		return nil
	}

	var firstErr error
	for _, url := range targets {
		if err := d.sender.Send(url, env); err != nil {
			d.log.LogError("dissemination.send", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d.log.LogDeltaSent(url, len(env.Tokens))
	}
	return firstErr
}

func (d *Dissemination) sampleFanout() []string {
	peers := d.peers.PeerURLs()
	if len(peers) <= d.fanout {
		return peers
	}
	shuffled := make([]string, len(peers))
	copy(shuffled, peers)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:d.fanout]
}

// StartAntiEntropy periodically re-pushes the full-state snapshot produced
// by each entry in fullStates, so a partitioned replica that missed deltas
// eventually converges without relying on any single missed push.
func (d *Dissemination) StartAntiEntropy(interval time.Duration, fullStates map[string]func() crdt.TokenStream) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.mu.Unlock()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for name, snapshot := range fullStates {
					if err := d.Push(name, snapshot()); err != nil {
						d.log.LogError("anti_entropy.push", err)
					}
				}
			case <-d.stopCh:
				return
			}
		}
	}()
}

// Stop halts the anti-entropy loop.
func (d *Dissemination) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	close(d.stopCh)
}
