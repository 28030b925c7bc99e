package domain

import "time"

// HeartbeatMetrics is the point-in-time resource snapshot carried by a heartbeat.
type HeartbeatMetrics struct {
	CPUUtil    float64
	MemUtil    float64
	Load1m     float64
	GPUUtil    float64
	SlurmState string
}

// Heartbeat is a signed, sequence-numbered liveness/utilization report from a node.
type Heartbeat struct {
	NodeID         string
	ClusterID      string
	SequenceNumber uint64
	Timestamp      time.Time
	Metrics        HeartbeatMetrics
	// Signature is the base64-decoded ed25519 signature over the canonical
	// JSON encoding of every other field (see internal/signing).
	Signature []byte
}

// RejectReason enumerates why RegisterNode/SubmitHeartbeat refused a request.
type RejectReason string

const (
	RejectUnknownNode        RejectReason = "unknown-node"
	RejectKeyMismatch        RejectReason = "key-mismatch"
	RejectUnknownCluster     RejectReason = "unknown-cluster"
	RejectClusterNotActive   RejectReason = "cluster-not-active"
	RejectProviderMismatch   RejectReason = "provider-mismatch"
	RejectBadSignature       RejectReason = "bad-signature"
	RejectReplay             RejectReason = "replay"
	RejectNodeDeregistered   RejectReason = "node-deregistered"
	RejectMalformed          RejectReason = "malformed"
)

// MetricRecord is a single non-heartbeat telemetry submission.
type MetricRecord struct {
	Name      string
	Value     float64
	Timestamp time.Time
}
