// Package signing provides the ed25519 heartbeat-signing primitives and the
// canonical encoders used to derive stable ids: usage record ids,
// idempotency keys, and chain event ids. Ed25519 is stdlib (crypto/ed25519)
// rather than a third-party package, mirroring the teacher's own signing-key
// handling in its application wiring.
package signing

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// DefaultIdempotencyBucket is the spec §6 default time-bucket width: two
// requests for the same (entity, action) within the same bucket collapse
// onto the same idempotency key.
const DefaultIdempotencyBucket = time.Hour

// Signer produces a detached signature over a message.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	PublicKey() ed25519.PublicKey
}

// Verifier checks a detached signature against a known public key.
type Verifier interface {
	Verify(publicKey ed25519.PublicKey, message, signature []byte) bool
}

// KeyPair is the default Signer, wrapping an ed25519 private key.
type KeyPair struct {
	private ed25519.PrivateKey
}

// NewKeyPair wraps an existing ed25519 private key.
func NewKeyPair(private ed25519.PrivateKey) (*KeyPair, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing: expected %d-byte key, got %d", ed25519.PrivateKeySize, len(private))
	}
	return &KeyPair{private: private}, nil
}

// GenerateKeyPair creates a fresh ed25519 key pair, used by node agents to
// provision their identity on first registration.
func GenerateKeyPair() (*KeyPair, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return &KeyPair{private: priv}, nil
}

// Sign signs message with the wrapped private key.
func (k *KeyPair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.private, message), nil
}

// PublicKey returns the public half of the key pair.
func (k *KeyPair) PublicKey() ed25519.PublicKey {
	return k.private.Public().(ed25519.PublicKey)
}

// DefaultVerifier implements Verifier using stdlib ed25519.Verify.
type DefaultVerifier struct{}

// Verify reports whether signature is a valid ed25519 signature of message
// under publicKey.
func (DefaultVerifier) Verify(publicKey ed25519.PublicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}

// CanonicalHeartbeat is every field of a heartbeat that participates in the
// signature: the node signs this, and the aggregator re-derives the same
// bytes to verify (spec §3 "signature verifies ... over the canonical
// serialization of all other fields").
type CanonicalHeartbeat struct {
	NodeID         string  `json:"node_id"`
	ClusterID      string  `json:"cluster_id"`
	SequenceNumber uint64  `json:"sequence_number"`
	TimestampUnix  int64   `json:"timestamp_unix"`
	CPUUtil        float64 `json:"cpu_util"`
	MemUtil        float64 `json:"mem_util"`
	Load1m         float64 `json:"load1m"`
	GPUUtil        float64 `json:"gpu_util"`
	SlurmState     string  `json:"slurm_state"`
}

// EncodeHeartbeat canonically encodes a heartbeat for signing/verification:
// JSON with keys sorted lexicographically (spec §6 "canonical JSON with
// keys sorted lexicographically"). json.Marshal of a struct preserves
// declared field order rather than sorting, so the fields are funneled
// through a map first — encoding/json sorts map keys when marshaling.
func EncodeHeartbeat(h CanonicalHeartbeat) ([]byte, error) {
	fields := map[string]interface{}{
		"node_id":         h.NodeID,
		"cluster_id":      h.ClusterID,
		"sequence_number": h.SequenceNumber,
		"timestamp_unix":  h.TimestampUnix,
		"cpu_util":        h.CPUUtil,
		"mem_util":        h.MemUtil,
		"load1m":          h.Load1m,
		"gpu_util":        h.GPUUtil,
		"slurm_state":     h.SlurmState,
	}
	return json.Marshal(fields)
}

// UsageID derives a stable, collision-resistant identifier for a usage
// record from its natural key (resourceID, periodStart, periodEnd),
// giving idempotent resubmission without a separate dedup table.
func UsageID(resourceID string, periodStartUnix, periodEndUnix int64) string {
	return derive("usage", resourceID, fmt.Sprintf("%d", periodStartUnix), fmt.Sprintf("%d", periodEndUnix))
}

// IdempotencyKey derives a deterministic key from (entity, action, time
// bucket) per spec §6: hash(entityId || "/" || action || "/" ||
// floor(timestamp/bucket)). Two calls with timestamps in the same bucket
// produce the same key, so retried operations collapse onto one outbox
// entry instead of duplicating it. bucket <= 0 falls back to
// DefaultIdempotencyBucket (one hour).
func IdempotencyKey(entity, action string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = DefaultIdempotencyBucket
	}
	floored := at.Unix() / int64(bucket/time.Second)
	return derive("idem", entity, action, fmt.Sprintf("%d", floored))
}

// EventID derives the canonical chain event id from its position in the
// event log, stable across reconnects and resubscriptions (spec §6).
func EventID(chainID string, blockHeight uint64, txIndex int, eventType string) string {
	return derive("event", chainID, fmt.Sprintf("%d", blockHeight), fmt.Sprintf("%d", txIndex), eventType)
}

// derive joins parts with a separator byte and returns a hex-encoded
// blake2b-256 digest. blake2b is chosen over sha256 for its speed at the
// small-message sizes these ids are derived from.
func derive(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(p))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
