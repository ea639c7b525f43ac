// Package replog provides the structured logging a replicad node emits for
// every mutation, converge, and gossip event, plus the counters those events
// feed into hashicorp's go-metrics so the node can be scraped or inspected
// mid-run.
package replog

import (
	"fmt"
	"log"
	"os"
	"time"

	gometrics "github.com/hashicorp/go-metrics"
)

// ReplicaLogger is the logger every replicad component takes a reference to.
// It wraps the standard logger the way the rest of the corpus does —
// timestamped, prefixed by node identity — and mirrors every interesting
// event into the process's metrics sink.
type ReplicaLogger struct {
	replicaName string
	logger      *log.Logger
	metrics     *gometrics.Metrics
	sink        *gometrics.InmemSink
}

// NewReplicaLogger builds a logger for replicaName, registering an in-memory
// metrics sink scoped to the process (suitable for a /metrics-style dump;
// swapping in a statsd or Prometheus sink only touches this constructor).
func NewReplicaLogger(replicaName string) *ReplicaLogger {
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", replicaName), log.LstdFlags|log.Lmicroseconds)

	sink := gometrics.NewInmemSink(10*time.Second, time.Minute)
	cfg := gometrics.DefaultConfig("replicad")
	cfg.EnableHostname = false
	m, err := gometrics.New(cfg, sink)
	if err != nil {
		// NewInmemSink never rejects its own config; this would only fire on
		// a future gometrics change to validation. Fall back to the global
		// metrics instance rather than leaving m nil.
		m = gometrics.Default()
	}

	return &ReplicaLogger{replicaName: replicaName, logger: logger, metrics: m, sink: sink}
}

// LogMutation records a local mutator call (Add, Set, Increment, ...).
func (l *ReplicaLogger) LogMutation(crdtName, op string, deltaSize int) {
	l.logger.Printf("MUTATE: crdt=%s op=%s delta_tokens=%d", crdtName, op, deltaSize)
	l.metrics.IncrCounter([]string{"mutation", crdtName, op}, 1)
}

// LogConverge records a Converge call and whether it changed local state.
func (l *ReplicaLogger) LogConverge(crdtName string, changed bool, d time.Duration) {
	l.logger.Printf("CONVERGE: crdt=%s changed=%v duration_us=%d", crdtName, changed, d.Microseconds())
	l.metrics.AddSample([]string{"converge", crdtName, "duration_us"}, float32(d.Microseconds()))
	if changed {
		l.metrics.IncrCounter([]string{"converge", crdtName, "changed"}, 1)
	}
}

// LogDeltaSent records a delta successfully pushed to a peer.
func (l *ReplicaLogger) LogDeltaSent(peer string, tokenCount int) {
	l.logger.Printf("DELTA_SENT: peer=%s tokens=%d", peer, tokenCount)
	l.metrics.IncrCounter([]string{"delta", "sent"}, 1)
}

// LogDeltaReceived records a delta accepted from a peer, before Converge
// runs — LogConverge records whether it actually changed anything.
func (l *ReplicaLogger) LogDeltaReceived(peer string, tokenCount int) {
	l.logger.Printf("DELTA_RECEIVED: peer=%s tokens=%d", peer, tokenCount)
	l.metrics.IncrCounter([]string{"delta", "received"}, 1)
}

// LogDeltaDropped records a delta discarded before Converge (duplicate ID,
// expired TTL, or malformed tokens).
func (l *ReplicaLogger) LogDeltaDropped(reason string) {
	l.logger.Printf("DELTA_DROPPED: reason=%s", reason)
	l.metrics.IncrCounter([]string{"delta", "dropped", reason}, 1)
}

// LogPeerJoin records a peer joining the cluster's membership view.
func (l *ReplicaLogger) LogPeerJoin(peer string) {
	l.logger.Printf("PEER_JOIN: peer=%s", peer)
	l.metrics.IncrCounter([]string{"membership", "join"}, 1)
}

// LogPeerLeave records a peer leaving the cluster's membership view.
func (l *ReplicaLogger) LogPeerLeave(peer string) {
	l.logger.Printf("PEER_LEAVE: peer=%s", peer)
	l.metrics.IncrCounter([]string{"membership", "leave"}, 1)
}

// LogError records an operational error against op.
func (l *ReplicaLogger) LogError(op string, err error) {
	l.logger.Printf("ERROR: op=%s error=%s", op, err.Error())
	l.metrics.IncrCounter([]string{"error", op}, 1)
}

// Data returns a point-in-time snapshot of every counter and sample this
// logger has fed, for a /stats-style endpoint.
func (l *ReplicaLogger) Data() []*gometrics.IntervalMetrics {
	return l.sink.Data()
}
