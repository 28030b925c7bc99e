// Package scheduler implements the HPC placement algorithm (spec §4.3): a
// pure function from (job, live roster) to a SchedulingDecision, with no
// internal mutable state so reruns are always reproducible.
package scheduler

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/domain"
)

// ErrNoPlacement is returned when no candidate satisfies the job's demand
// and constraints (spec §4.3 step 5 "no-placement(reason)").
var ErrNoPlacement = errors.New("scheduler: no placement satisfies job constraints")

// Weights configures the scoring step (spec §6 schedulerWeights, must sum
// to 1.0 — the runtime's config loader is responsible for validating that).
type Weights struct {
	Capacity    float64
	Latency     float64
	Reliability float64
}

// DefaultWeights returns an even-ish split favoring capacity headroom.
func DefaultWeights() Weights {
	return Weights{Capacity: 0.5, Latency: 0.25, Reliability: 0.25}
}

// Scheduler is stateless; Place is pure given its arguments.
type Scheduler struct {
	weights Weights
}

// New creates a Scheduler with the given scoring weights.
func New(weights Weights) *Scheduler {
	return &Scheduler{weights: weights}
}

// Place selects a cluster and node set for job from the given roster,
// grouped by cluster id, and the matching cluster metadata.
func (s *Scheduler) Place(job domain.Job, clusters []domain.Cluster, roster map[string][]domain.Node) (domain.SchedulingDecision, error) {
	clusterByID := make(map[string]domain.Cluster, len(clusters))
	for _, c := range clusters {
		clusterByID[c.ClusterID] = c
	}

	type candidate struct {
		clusterID string
		nodeIDs   []string
		score     float64
	}
	var best *candidate

	for clusterID, nodes := range roster {
		cluster, ok := clusterByID[clusterID]
		if !ok || !clusterEligible(cluster, job) {
			continue
		}

		eligible := filterNodes(nodes, job)
		if len(eligible) < job.Resources.Nodes {
			continue
		}

		groups := groupByLocality(eligible, job.Constraints)
		for _, group := range groups {
			if len(group) < job.Resources.Nodes {
				continue
			}
			subset := selectTopN(group, job.Resources.Nodes, s.weights)
			score := scoreSubset(subset, s.weights)
			ids := nodeIDs(subset)

			if best == nil || score > best.score {
				best = &candidate{clusterID: clusterID, nodeIDs: ids, score: score}
			} else if score == best.score && tieBreakHash(job.JobID, ids) < tieBreakHash(job.JobID, best.nodeIDs) {
				best = &candidate{clusterID: clusterID, nodeIDs: ids, score: score}
			}
		}
	}

	if best == nil {
		return domain.SchedulingDecision{}, ErrNoPlacement
	}

	seed := tieBreakSeed(job.JobID, best.nodeIDs)
	return domain.SchedulingDecision{
		JobID:             job.JobID,
		SelectedClusterID: best.clusterID,
		SelectedNodeIDs:   best.nodeIDs,
		Score:             best.score,
		DecidedAt:         time.Now(),
		TieBreakerSeed:    seed,
	}, nil
}

func clusterEligible(c domain.Cluster, job domain.Job) bool {
	if c.State != domain.ClusterStateActive {
		return false
	}
	if c.AvailableNodes < job.Resources.Nodes {
		return false
	}
	if len(job.Constraints.RegionAllowList) > 0 && !contains(job.Constraints.RegionAllowList, c.Region) {
		return false
	}
	return true
}

func filterNodes(nodes []domain.Node, job domain.Job) []domain.Node {
	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.State != domain.NodeStateActive {
			continue
		}
		if !n.Capacity.Fits(job.Resources.CPUPerNode, job.Resources.MemGBPerNode, job.Resources.GPUsPerNode, job.Resources.GPUType) {
			continue
		}
		if job.Constraints.RequireGPUType != "" && n.Capacity.GPUType != job.Constraints.RequireGPUType {
			continue
		}
		out = append(out, n)
	}
	return out
}

// groupByLocality buckets nodes by rack or zone when the job requires
// affinity, or returns the whole set as one group otherwise.
func groupByLocality(nodes []domain.Node, constraints domain.PlacementConstraints) [][]domain.Node {
	if !constraints.SameRack && !constraints.SameZone {
		return [][]domain.Node{nodes}
	}

	buckets := make(map[string][]domain.Node)
	for _, n := range nodes {
		key := n.Locality.Zone
		if constraints.SameRack {
			key = n.Locality.Rack
		}
		buckets[key] = append(buckets[key], n)
	}

	groups := make([][]domain.Node, 0, len(buckets))
	for _, g := range buckets {
		groups = append(groups, g)
	}
	return groups
}

// selectTopN picks the n highest-scoring individual nodes from group.
func selectTopN(group []domain.Node, n int, weights Weights) []domain.Node {
	scored := make([]domain.Node, len(group))
	copy(scored, group)
	sort.Slice(scored, func(i, j int) bool {
		return nodeScore(scored[i], weights) > nodeScore(scored[j], weights)
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// nodeScore weights free-capacity headroom, inverse latency, and
// reliability (spec §4.3 step 3).
func nodeScore(n domain.Node, w Weights) float64 {
	headroom := softmaxHeadroom(n.Capacity)
	latencyScore := 1.0 / (1.0 + n.RecentLatencyMS)
	return w.Capacity*headroom + w.Latency*latencyScore + w.Reliability*n.ReliabilityScore
}

func softmaxHeadroom(c domain.Capacity) float64 {
	if c.CPUCores == 0 {
		return 0
	}
	ratio := float64(c.AvailCPU) / float64(c.CPUCores)
	return 1.0 / (1.0 + math.Exp(-4*(ratio-0.5)))
}

func scoreSubset(nodes []domain.Node, w Weights) float64 {
	if len(nodes) == 0 {
		return 0
	}
	total := 0.0
	for _, n := range nodes {
		total += nodeScore(n, w)
	}
	return total / float64(len(nodes))
}

func nodeIDs(nodes []domain.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.NodeID
	}
	sort.Strings(ids)
	return ids
}

// tieBreakHash produces a deterministic tie-break value from (jobId,
// nodeIds) — never wall-clock ordering (spec §4.3 step 4).
func tieBreakHash(jobID string, nodeIDs []string) uint64 {
	h := sha256.New()
	h.Write([]byte(jobID))
	for _, id := range nodeIDs {
		h.Write([]byte{0x1f})
		h.Write([]byte(id))
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

func tieBreakSeed(jobID string, nodeIDs []string) string {
	h := sha256.New()
	h.Write([]byte(jobID))
	for _, id := range nodeIDs {
		h.Write([]byte{0x1f})
		h.Write([]byte(id))
	}
	return hexEncode(h.Sum(nil))
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
