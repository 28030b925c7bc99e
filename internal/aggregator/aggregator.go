// Package aggregator is the node roster owner (spec §4.1): it accepts
// registration, heartbeat, and metrics-batch submissions from node agents,
// verifies signatures, enforces the per-node monotonic sequence number, and
// exposes a read-only roster snapshot to the scheduler and monitor.
//
// The aggregator is the one hot path in the runtime where logrus's
// reflection-based Fields would show up in profiles, so it logs through
// go.uber.org/zap instead of internal/logging.
package aggregator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/signing"
)

// RejectedError carries a domain.RejectReason alongside the apierrors code,
// so callers needing the exact spec §4.2 classification don't have to
// string-match the apierrors message.
type RejectedError struct {
	*apierrors.ServiceError
	Reason domain.RejectReason
}

// nodeEntry is the aggregator's internal per-node record: the public Node
// plus a dedicated lock serializing sequence-number checks for that node
// (spec §4.1 "a per-node lock or a single-writer shard").
type nodeEntry struct {
	mu   sync.Mutex
	node domain.Node
}

// clusterEntry tracks atomic per-cluster capacity counters (spec §4.1
// "Capacity accounting uses atomic 64-bit counters per cluster").
type clusterEntry struct {
	cluster        domain.Cluster
	availableNodes int64
}

// HealthNotifier receives HeartbeatAccepted-equivalent notifications so the
// heartbeat monitor can reset a node's health state without re-reading the
// whole roster on every beat.
type HealthNotifier interface {
	NotifyHeartbeat(nodeID string, at time.Time)
}

// Aggregator owns the node roster. The roster map itself is guarded by a
// reader-writer lock (reads dominate, spec §5); per-node mutation is
// additionally serialized by nodeEntry.mu so a registration can't race a
// heartbeat for the same node.
type Aggregator struct {
	mu       sync.RWMutex
	nodes    map[string]*nodeEntry
	clusters map[string]*clusterEntry

	verifier signing.Verifier
	notifier HealthNotifier
	logger   *zap.Logger
}

// New creates an Aggregator. clusters seeds the known cluster set (in a
// full deployment this is hydrated from the marketplace's on-chain offering
// index at startup).
func New(clusters []domain.Cluster, verifier signing.Verifier, notifier HealthNotifier, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	clusterMap := make(map[string]*clusterEntry, len(clusters))
	for _, c := range clusters {
		clusterMap[c.ClusterID] = &clusterEntry{cluster: c, availableNodes: int64(c.AvailableNodes)}
	}
	return &Aggregator{
		nodes:    make(map[string]*nodeEntry),
		clusters: clusterMap,
		verifier: verifier,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterNode admits a new node to the fleet (spec §4.1 RegisterNode).
func (a *Aggregator) RegisterNode(nodeID, clusterID, providerAddress string, publicKey []byte, hostname string, capacity domain.Capacity, locality domain.Locality) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cluster, ok := a.clusters[clusterID]
	if !ok {
		return &RejectedError{apierrors.InvalidInput("clusterId", "unknown cluster"), domain.RejectUnknownCluster}
	}
	if cluster.cluster.State != domain.ClusterStateActive {
		return &RejectedError{apierrors.Conflict("cluster is not active"), domain.RejectClusterNotActive}
	}
	if cluster.cluster.ProviderAddress != providerAddress {
		return &RejectedError{apierrors.Forbidden("provider does not own cluster"), domain.RejectProviderMismatch}
	}

	if existing, ok := a.nodes[nodeID]; ok {
		existing.mu.Lock()
		defer existing.mu.Unlock()
		if string(existing.node.PublicKey) != string(publicKey) {
			return &RejectedError{apierrors.Conflict("node already registered with a different key"), domain.RejectKeyMismatch}
		}
		return nil
	}

	a.nodes[nodeID] = &nodeEntry{node: domain.Node{
		NodeID:          nodeID,
		ClusterID:       clusterID,
		ProviderAddress: providerAddress,
		PublicKey:       publicKey,
		Hostname:        hostname,
		Capacity:        capacity,
		Locality:        locality,
		State:           domain.NodeStateActive,
		RegisteredAt:    time.Now(),
	}}

	atomic.AddInt64(&cluster.availableNodes, 1)
	cluster.cluster.TotalNodes++
	cluster.cluster.AvailableNodes = int(atomic.LoadInt64(&cluster.availableNodes))

	a.logger.Info("node registered", zap.String("node_id", nodeID), zap.String("cluster_id", clusterID))
	return nil
}

// SubmitHeartbeat verifies and applies a signed heartbeat (spec §4.1
// SubmitHeartbeat). The hot path: signature verification then a strictly
// serialized sequence-number check under the node's own lock.
func (a *Aggregator) SubmitHeartbeat(hb domain.Heartbeat) error {
	start := time.Now()
	entry, err := a.lookupNode(hb.NodeID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.node.State == domain.NodeStateDeregistered {
		return &RejectedError{apierrors.Conflict("node is deregistered"), domain.RejectNodeDeregistered}
	}

	msg, err := signing.EncodeHeartbeat(signing.CanonicalHeartbeat{
		NodeID:         hb.NodeID,
		ClusterID:      hb.ClusterID,
		SequenceNumber: hb.SequenceNumber,
		TimestampUnix:  hb.Timestamp.Unix(),
		CPUUtil:        hb.Metrics.CPUUtil,
		MemUtil:        hb.Metrics.MemUtil,
		Load1m:         hb.Metrics.Load1m,
		GPUUtil:        hb.Metrics.GPUUtil,
		SlurmState:     hb.Metrics.SlurmState,
	})
	if err != nil {
		return apierrors.Internal("encode heartbeat", err)
	}
	if !a.verifier.Verify(entry.node.PublicKey, msg, hb.Signature) {
		return &RejectedError{apierrors.BadSignature(nil), domain.RejectBadSignature}
	}

	if hb.SequenceNumber <= entry.node.LastSequenceNumber {
		return &RejectedError{apierrors.Replay("sequence number replay"), domain.RejectReplay}
	}

	entry.node.LastSequenceNumber = hb.SequenceNumber
	entry.node.LastHeartbeatAt = hb.Timestamp
	if entry.node.State != domain.NodeStateActive {
		entry.node.State = domain.NodeStateActive
	}
	a.applyUtilization(entry, hb.Metrics)

	if a.notifier != nil {
		a.notifier.NotifyHeartbeat(hb.NodeID, hb.Timestamp)
	}

	a.logger.Debug("heartbeat accepted",
		zap.String("node_id", hb.NodeID),
		zap.Uint64("sequence", hb.SequenceNumber),
		zap.Duration("processing_time", time.Since(start)))
	return nil
}

// applyUtilization folds heartbeat utilization percentages into the node's
// available-capacity counters.
func (a *Aggregator) applyUtilization(entry *nodeEntry, m domain.HeartbeatMetrics) {
	capacity := entry.node.Capacity
	capacity.AvailCPU = headroom(capacity.CPUCores, m.CPUUtil)
	capacity.AvailMemGB = headroom(capacity.MemoryGB, m.MemUtil)
	entry.node.Capacity = capacity
}

func headroom(total int, utilPct float64) int {
	if utilPct < 0 {
		utilPct = 0
	}
	if utilPct > 100 {
		utilPct = 100
	}
	free := float64(total) * (1 - utilPct/100)
	if free < 0 {
		free = 0
	}
	return int(free)
}

// SubmitMetricsBatch validates a batch of non-heartbeat metric records
// independently, returning which were accepted and which were rejected.
func (a *Aggregator) SubmitMetricsBatch(nodeID string, records []domain.MetricRecord) (accepted int, rejected []string) {
	_, err := a.lookupNode(nodeID)
	if err != nil {
		rejected = make([]string, len(records))
		for i := range records {
			rejected[i] = "unknown node"
		}
		return 0, rejected
	}

	for _, r := range records {
		if r.Name == "" || r.Value < 0 {
			rejected = append(rejected, r.Name)
			continue
		}
		accepted++
	}
	return accepted, rejected
}

// Deregister terminally removes a node from the fleet (spec §4.1
// Deregister). Future submissions from the node are rejected.
func (a *Aggregator) Deregister(nodeID, reason string) error {
	entry, err := a.lookupNode(nodeID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.node.State = domain.NodeStateDeregistered

	a.mu.RLock()
	cluster, ok := a.clusters[entry.node.ClusterID]
	a.mu.RUnlock()
	if ok {
		atomic.AddInt64(&cluster.availableNodes, -1)
	}

	a.logger.Info("node deregistered", zap.String("node_id", nodeID), zap.String("reason", reason))
	return nil
}

// SetNodeState transitions a node's health-layer state (called by the
// heartbeat monitor sweep, spec §4.2).
func (a *Aggregator) SetNodeState(nodeID string, state domain.NodeState) error {
	entry, err := a.lookupNode(nodeID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.node.State == domain.NodeStateDeregistered {
		return nil
	}
	entry.node.State = state
	return nil
}

// Node returns a snapshot copy of one node.
func (a *Aggregator) Node(nodeID string) (domain.Node, error) {
	entry, err := a.lookupNode(nodeID)
	if err != nil {
		return domain.Node{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.node, nil
}

// ActiveRoster returns a read snapshot of every node in state Active,
// grouped by cluster, for the scheduler to filter and score (spec §4.3
// "pure function of inputs at call time").
func (a *Aggregator) ActiveRoster() map[string][]domain.Node {
	a.mu.RLock()
	defer a.mu.RUnlock()

	byCluster := make(map[string][]domain.Node)
	for _, entry := range a.nodes {
		entry.mu.Lock()
		if entry.node.State == domain.NodeStateActive {
			byCluster[entry.node.ClusterID] = append(byCluster[entry.node.ClusterID], entry.node)
		}
		entry.mu.Unlock()
	}
	return byCluster
}

// Clusters returns a read snapshot of every known cluster.
func (a *Aggregator) Clusters() []domain.Cluster {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.Cluster, 0, len(a.clusters))
	for _, c := range a.clusters {
		cluster := c.cluster
		cluster.AvailableNodes = int(atomic.LoadInt64(&c.availableNodes))
		out = append(out, cluster)
	}
	return out
}

// AllNodeIDs returns every known node id, for the monitor's sweep.
func (a *Aggregator) AllNodeIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.nodes))
	for id := range a.nodes {
		ids = append(ids, id)
	}
	return ids
}

func (a *Aggregator) lookupNode(nodeID string) (*nodeEntry, error) {
	a.mu.RLock()
	entry, ok := a.nodes[nodeID]
	a.mu.RUnlock()
	if !ok {
		return nil, &RejectedError{apierrors.NotFound("node", nodeID), domain.RejectUnknownNode}
	}
	return entry, nil
}

// Close flushes the zap logger. Intended to run during runtime shutdown.
func (a *Aggregator) Close(_ context.Context) error {
	_ = a.logger.Sync()
	return nil
}
