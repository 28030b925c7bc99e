// Package monitor implements the heartbeat health classifier (spec §4.2):
// a single-threaded periodic sweep that converts "time since last
// heartbeat" into a categorical health state layered on top of the node's
// lifecycle state in the aggregator.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/logging"
)

// Roster is the read-only view the monitor needs from the aggregator.
type Roster interface {
	AllNodeIDs() []string
	Node(nodeID string) (domain.Node, error)
	SetNodeState(nodeID string, state domain.NodeState) error
}

// Thresholds configures the health classifier (spec §4.2 defaults).
type Thresholds struct {
	Stale         time.Duration
	Offline       time.Duration
	Deregistration time.Duration
	CheckInterval time.Duration
}

// DefaultThresholds returns the spec's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Stale:          30 * time.Second,
		Offline:        2 * time.Minute,
		Deregistration: time.Hour,
		CheckInterval:  10 * time.Second,
	}
}

// Alert is emitted on every health-state transition.
type Alert struct {
	NodeID    string
	From      domain.NodeState
	To        domain.NodeState
	At        time.Time
}

// AlertSink receives health transition alerts (wired to the outbox as a
// lifecycle-callback entry, or just logged, depending on deployment).
type AlertSink interface {
	OnHealthTransition(Alert)
}

// Monitor runs the periodic sweep. lastBeat is the monitor's own view of
// "last time I saw this node", updated synchronously via NotifyHeartbeat so
// the sweep needs no extra round-trip to the aggregator for timing.
type Monitor struct {
	mu       sync.RWMutex
	lastBeat map[string]time.Time
	health   map[string]domain.NodeState

	roster     Roster
	thresholds Thresholds
	sink       AlertSink
	logger     *logging.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Monitor.
func New(roster Roster, thresholds Thresholds, sink AlertSink, logger *logging.Logger) *Monitor {
	return &Monitor{
		lastBeat:   make(map[string]time.Time),
		health:     make(map[string]domain.NodeState),
		roster:     roster,
		thresholds: thresholds,
		sink:       sink,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// SetRoster wires the roster after construction, for the common startup
// ordering where the aggregator and monitor depend on each other (the
// aggregator needs the monitor as its HealthNotifier, the monitor needs the
// aggregator as its Roster).
func (m *Monitor) SetRoster(roster Roster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roster = roster
}

// NotifyHeartbeat records that nodeID was just heard from and resets its
// health state to active (spec §4.2 "Any non-terminal -> healthy upon
// heartbeat acceptance"). Implements aggregator.HealthNotifier.
func (m *Monitor) NotifyHeartbeat(nodeID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBeat[nodeID] = at
	m.health[nodeID] = domain.NodeStateActive
}

// Start runs the sweep loop until ctx is cancelled. In-flight sweeps
// complete before exit (spec §4.2 cancellation contract).
func (m *Monitor) Start(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.thresholds.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// Stop signals the sweep loop to exit after its current pass.
func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

// sweep visits every known node and applies the state machine transitions.
func (m *Monitor) sweep(now time.Time) {
	for _, nodeID := range m.roster.AllNodeIDs() {
		m.mu.RLock()
		last, seen := m.lastBeat[nodeID]
		current := m.health[nodeID]
		m.mu.RUnlock()

		if !seen {
			node, err := m.roster.Node(nodeID)
			if err != nil {
				continue
			}
			if node.LastHeartbeatAt.IsZero() {
				continue
			}
			last = node.LastHeartbeatAt
			current = domain.NodeStateActive
		}

		next := m.classify(current, now.Sub(last))
		if next == current {
			continue
		}

		m.mu.Lock()
		m.health[nodeID] = next
		m.mu.Unlock()

		if err := m.roster.SetNodeState(nodeID, next); err != nil {
			if m.logger != nil {
				m.logger.WithError(err).Error("monitor: failed to publish node state")
			}
			continue
		}

		if m.sink != nil {
			m.sink.OnHealthTransition(Alert{NodeID: nodeID, From: current, To: next, At: now})
		}
	}
}

// classify applies the spec §4.2 state machine for a single node.
func (m *Monitor) classify(current domain.NodeState, sinceLastBeat time.Duration) domain.NodeState {
	switch current {
	case domain.NodeStateDeregistered:
		return current
	case domain.NodeStateOffline:
		if sinceLastBeat > m.thresholds.Deregistration {
			return domain.NodeStateDeregistered
		}
		return current
	case domain.NodeStateStale:
		if sinceLastBeat > m.thresholds.Offline {
			return domain.NodeStateOffline
		}
		return current
	default: // active/pending/draining treated as healthy baseline
		if sinceLastBeat > m.thresholds.Stale {
			return domain.NodeStateStale
		}
		return current
	}
}
