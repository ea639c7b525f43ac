// Package config centralizes the runtime configuration of a replicad node.
package config

import "time"

// ClusterConfig is the configuration a replicad node starts from: its own
// identity, the ports it listens on, and the cadence of the gossip
// mechanisms that keep replicas converging.
type ClusterConfig struct {
	// Identity
	ReplicaName string `json:"replica_name"` // memberlist node name
	ReplicaID   uint64 `json:"replica_id"`    // crdt.ReplicaId this node mutates under

	// Networking
	SwimPort int    `json:"swim_port"` // memberlist SWIM gossip/probe port
	HTTPPort int    `json:"http_port"` // token-stream push/pull API port
	BindAddr string `json:"bind_addr"`

	// Dissemination
	Fanout int `json:"fanout"` // neighbors contacted per push round
	TTL    int `json:"ttl"`    // hops a delta may still travel

	PushInterval        time.Duration `json:"push_interval"`         // periodic delta push
	AntiEntropyInterval time.Duration `json:"anti_entropy_interval"` // periodic full-state exchange

	DialTimeout time.Duration `json:"dial_timeout"` // per-peer HTTP push timeout

	Seeds []string `json:"seeds"` // known peers to join at startup
}

// DefaultConfig returns the configuration a single-node dev cluster starts
// with; callers override fields from flags or a config file.
func DefaultConfig() *ClusterConfig {
	return &ClusterConfig{
		ReplicaName:         "replica-1",
		ReplicaID:           1,
		SwimPort:            7946,
		HTTPPort:            8080,
		BindAddr:            "0.0.0.0",
		Fanout:              3,
		TTL:                 4,
		PushInterval:        5 * time.Second,
		AntiEntropyInterval: 60 * time.Second,
		DialTimeout:         5 * time.Second,
	}
}
