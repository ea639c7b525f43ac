// Package cluster wraps hashicorp/memberlist's SWIM gossip protocol into the
// membership view a replicad node uses to discover the peers it should push
// deltas to. It carries no CRDT state itself — Converge happens over the
// token-stream transport, not over memberlist's own gossip payloads.
package cluster

import (
	"fmt"
	"time"

	"github.com/hashicorp/memberlist"

	"github.com/cdelta/dotcrdt/internal/replog"
)

// Events adapts memberlist's EventDelegate to replog, so membership changes
// show up in the same structured log and metrics stream as CRDT activity.
type Events struct {
	log *replog.ReplicaLogger
}

func (e *Events) NotifyJoin(n *memberlist.Node)   { e.log.LogPeerJoin(n.Name) }
func (e *Events) NotifyLeave(n *memberlist.Node)  { e.log.LogPeerLeave(n.Name) }
func (e *Events) NotifyUpdate(n *memberlist.Node) {}

// Manager owns a memberlist instance and exposes the subset of it replicad
// needs: the current peer set, as HTTP base URLs for the token-stream API.
type Manager struct {
	ml       *memberlist.Memberlist
	name     string
	httpPort int
}

// Config configures a Manager.
type Config struct {
	Name     string   // memberlist node name, unique per cluster
	BindAddr string   // address memberlist binds its SWIM port to
	BindPort int      // SWIM gossip/probe port
	HTTPPort int      // port the token-stream API listens on; PeerURLs assumes every member uses it
	Seeds    []string // addr:swim-port pairs to join at startup
}

// New creates a Manager and attempts to join the configured seeds. A seed
// dial failure is logged but not fatal — memberlist's own gossip will pick
// the node up once any other node successfully joins it.
func New(cfg Config, log *replog.ReplicaLogger) (*Manager, error) {
	mlCfg := memberlist.DefaultLANConfig()
	mlCfg.Name = cfg.Name
	mlCfg.BindAddr = cfg.BindAddr
	mlCfg.BindPort = cfg.BindPort
	mlCfg.Events = &Events{log: log}

	ml, err := memberlist.Create(mlCfg)
	if err != nil {
		return nil, fmt.Errorf("creating memberlist: %w", err)
	}

	m := &Manager{ml: ml, name: cfg.Name, httpPort: cfg.HTTPPort}

	if len(cfg.Seeds) > 0 {
		if n, err := ml.Join(cfg.Seeds); err != nil {
			log.LogError("cluster.join", err)
		} else {
			log.LogPeerJoin(fmt.Sprintf("joined %d seed(s)", n))
		}
	}

	return m, nil
}

// PeerURLs returns the token-stream API base URL of every other live member.
func (m *Manager) PeerURLs() []string {
	members := m.ml.Members()
	urls := make([]string, 0, len(members))
	for _, n := range members {
		if n.Name == m.name {
			continue
		}
		urls = append(urls, fmt.Sprintf("http://%s:%d", n.Addr.String(), m.httpPort))
	}
	return urls
}

// MemberCount returns the total number of known members, including self.
func (m *Manager) MemberCount() int { return m.ml.NumMembers() }

// Leave gracefully removes this node from the cluster, waiting up to
// timeout for the departure broadcast to propagate.
func (m *Manager) Leave(timeout time.Duration) error {
	return m.ml.Leave(timeout)
}

// Shutdown tears down the memberlist instance without notifying peers.
func (m *Manager) Shutdown() error { return m.ml.Shutdown() }
