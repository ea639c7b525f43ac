// Command replicad runs a single node of a delta-state CRDT cluster: it
// joins a SWIM membership view via internal/cluster, gossips a replicated
// GCounter over transport, and exposes it through a small HTTP API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cdelta/dotcrdt/crdt"
	"github.com/cdelta/dotcrdt/internal/cluster"
	"github.com/cdelta/dotcrdt/internal/config"
	"github.com/cdelta/dotcrdt/internal/replog"
	"github.com/cdelta/dotcrdt/transport"
)

// counterNode guards the demo GCounter behind a mutex — Dissemination calls
// the sink from its own goroutine on every inbound /delta.
type counterNode struct {
	mu      sync.Mutex
	counter *crdt.GCounter[uint64]
}

func (n *counterNode) increment(by uint64) crdt.TokenStream {
	n.mu.Lock()
	defer n.mu.Unlock()
	delta := n.counter.Increment(by)
	return delta.Tokens()
}

func (n *counterNode) snapshot() crdt.TokenStream {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counter.Tokens()
}

func (n *counterNode) value() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counter.Value()
}

func (n *counterNode) converge(tokens crdt.TokenStream) (bool, error) {
	remote, err := crdt.GCounterFromTokens[uint64](crdt.NewTokenReader(tokens))
	if err != nil {
		return false, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counter.Converge(remote), nil
}

func main() {
	var (
		name      = flag.String("name", "replica-1", "unique node name")
		replicaID = flag.Uint64("replica-id", 1, "crdt.ReplicaId this node mutates under")
		bindAddr  = flag.String("bind", "0.0.0.0", "bind address")
		swimPort  = flag.Int("swim-port", 7946, "SWIM membership port")
		httpPort  = flag.Int("http-port", 8080, "token-stream HTTP API port")
		fanout    = flag.Int("fanout", 3, "gossip fanout")
		ttl       = flag.Int("ttl", 4, "gossip TTL")
		pushMs    = flag.Int("push-ms", 2000, "periodic counter increment + push interval")
		antiEntMs = flag.Int("anti-entropy-ms", 60000, "full-state anti-entropy interval")
		seedsFlag = flag.String("seeds", "", "comma-separated addr:swim-port seeds")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	cfg.ReplicaName = *name
	cfg.ReplicaID = *replicaID
	cfg.BindAddr = *bindAddr
	cfg.SwimPort = *swimPort
	cfg.HTTPPort = *httpPort
	cfg.Fanout = *fanout
	cfg.TTL = *ttl
	cfg.PushInterval = time.Duration(*pushMs) * time.Millisecond
	cfg.AntiEntropyInterval = time.Duration(*antiEntMs) * time.Millisecond
	if *seedsFlag != "" {
		cfg.Seeds = splitNonEmpty(*seedsFlag, ',')
	}

	log := replog.NewReplicaLogger(cfg.ReplicaName)

	clusterMgr, err := cluster.New(cluster.Config{
		Name:     cfg.ReplicaName,
		BindAddr: cfg.BindAddr,
		BindPort: cfg.SwimPort,
		HTTPPort: cfg.HTTPPort,
		Seeds:    cfg.Seeds,
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cluster init failed: %v\n", err)
		os.Exit(1)
	}

	node := &counterNode{counter: crdt.NewGCounter[uint64](crdt.ReplicaId(cfg.ReplicaID))}

	client := transport.NewClient(cfg.DialTimeout)
	dissemination := transport.New(crdt.ReplicaId(cfg.ReplicaID), cfg.Fanout, cfg.TTL, client, clusterMgr, log)
	dissemination.Register("demo.counter", node.converge)

	server := transport.NewServer(cfg.HTTPPort, dissemination, log)
	server.Handle("/value", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]uint64{"value": node.value()})
	})
	server.Handle("/members", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"member_count": clusterMgr.MemberCount(),
			"peers":        clusterMgr.PeerURLs(),
		})
	})

	dissemination.StartAntiEntropy(cfg.AntiEntropyInterval, map[string]func() crdt.TokenStream{
		"demo.counter": node.snapshot,
	})

	go func() {
		ticker := time.NewTicker(cfg.PushInterval)
		defer ticker.Stop()
		for range ticker.C {
			tokens := node.increment(1)
			if err := dissemination.Push("demo.counter", tokens); err != nil {
				log.LogError("main.push", err)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		dissemination.Stop()
		_ = clusterMgr.Leave(5 * time.Second)
		_ = server.Stop()
		os.Exit(0)
	}()

	fmt.Printf("=== replicad: %s (replica id %d) ===\n", cfg.ReplicaName, cfg.ReplicaID)
	fmt.Printf("SWIM: %s:%d   HTTP: %s:%d\n", cfg.BindAddr, cfg.SwimPort, cfg.BindAddr, cfg.HTTPPort)
	fmt.Printf("gossip: fanout=%d ttl=%d push=%v anti-entropy=%v\n", cfg.Fanout, cfg.TTL, cfg.PushInterval, cfg.AntiEntropyInterval)

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "http server stopped: %v\n", err)
		os.Exit(1)
	}
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
