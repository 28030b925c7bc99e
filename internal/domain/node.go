// Package domain holds the core marketplace entities: nodes, clusters, jobs,
// usage records, outbox entries and chain events. It has no infrastructure
// dependencies — storage and transport adapters map onto these types, not the
// other way around.
package domain

import "time"

// NodeState is the lifecycle state of a registered compute node.
type NodeState string

const (
	NodeStatePending      NodeState = "pending"
	NodeStateActive       NodeState = "active"
	NodeStateStale        NodeState = "stale"
	NodeStateDraining     NodeState = "draining"
	NodeStateOffline      NodeState = "offline"
	NodeStateDeregistered NodeState = "deregistered"
)

// Capacity describes a resource envelope: total and currently available.
type Capacity struct {
	CPUCores    int
	MemoryGB    int
	GPUs        int
	GPUType     string
	StorageGB   int
	AvailCPU    int
	AvailMemGB  int
	AvailGPUs   int
	AvailStoreG int
}

// Fits reports whether the capacity has enough free headroom for a demand.
func (c Capacity) Fits(demandCPU, demandMemGB, demandGPUs int, requiredGPUType string) bool {
	if requiredGPUType != "" && (c.GPUType != requiredGPUType || c.AvailGPUs < demandGPUs) {
		return false
	}
	if demandGPUs > 0 && c.AvailGPUs < demandGPUs {
		return false
	}
	return c.AvailCPU >= demandCPU && c.AvailMemGB >= demandMemGB
}

// Locality captures a node's physical placement for rack/zone affinity rules.
type Locality struct {
	Region     string
	Datacenter string
	Zone       string
	Rack       string
}

// Node is a single registered compute host.
type Node struct {
	NodeID             string
	ClusterID          string
	ProviderAddress    string
	PublicKey          []byte
	Hostname           string
	Capacity           Capacity
	Locality           Locality
	State              NodeState
	LastSequenceNumber uint64
	LastHeartbeatAt    time.Time
	RegisteredAt       time.Time

	// ReliabilityScore is the fraction of completed (vs failed) jobs this
	// node has hosted; consumed only by the scheduler's scoring step.
	ReliabilityScore float64
	// RecentLatencyMS is a smoothed estimate of recent control-plane latency.
	RecentLatencyMS float64
}

// ClusterState mirrors the on-chain offering lifecycle for a provider's cluster.
type ClusterState string

const (
	ClusterStatePending    ClusterState = "pending"
	ClusterStateActive     ClusterState = "active"
	ClusterStateDraining   ClusterState = "draining"
	ClusterStateTerminated ClusterState = "terminated"
)

// Cluster is a set of nodes controlled by one provider.
type Cluster struct {
	ClusterID       string
	ProviderAddress string
	Region          string
	State           ClusterState
	TotalNodes      int
	AvailableNodes  int
}
