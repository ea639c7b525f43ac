// Package crdt implements the causal/dotted-state machinery shared by every
// delta-state CRDT in this module: dot contexts, dot kernels, and the
// counter and observed-remove CRDTs built on top of them.
package crdt

import "fmt"

// ReplicaId identifies a single replica in the cluster. Uniqueness across
// the cluster is the caller's responsibility. A replica whose id is 0 is
// conventionally read-only: it may receive merges but its adding mutators
// (those that mint a dot or bump a counter) are no-ops (see the Strict
// variants in strict.go for callers that want an error instead). Removing
// mutators do not check the id; see strict.go.
type ReplicaId uint64

// ReadOnlyReplica is the reserved id for replicas that never originate dots.
const ReadOnlyReplica ReplicaId = 0

// SeqNum is a per-replica monotonically increasing counter. Seq 0 means
// "no event" and is never assigned to a dot.
type SeqNum uint64

// Dot uniquely identifies one causal event: the SeqNum-th event originated
// by ReplicaId.
type Dot struct {
	Id  ReplicaId
	Seq SeqNum
}

// Less orders dots lexicographically by (Id, Seq).
func (d Dot) Less(o Dot) bool {
	if d.Id != o.Id {
		return d.Id < o.Id
	}
	return d.Seq < o.Seq
}

func (d Dot) String() string {
	return fmt.Sprintf("%d#%d", d.Id, d.Seq)
}
