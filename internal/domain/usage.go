package domain

import "time"

// UsageMetrics is the delta-metered consumption for one billing period.
type UsageMetrics struct {
	CPUHours     float64
	MemGBHours   float64
	GPUHours     float64
	StorageGBHours float64
	NetworkGB    float64
}

// UsageRecord is a discrete, signed, billable usage period for one resource.
// UsageID is a pure function of (ResourceID, PeriodStart, PeriodEnd) — see
// internal/signing.UsageID — giving natural idempotency on resubmission.
type UsageRecord struct {
	UsageID           string
	ResourceID        string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	Metrics           UsageMetrics
	IsFinal           bool
	ProviderSignature []byte
}

// OutboxKind distinguishes the payload shape of an outbox entry.
type OutboxKind string

const (
	OutboxUsage              OutboxKind = "usage"
	OutboxSettlement         OutboxKind = "settlement"
	OutboxLifecycleCallback  OutboxKind = "lifecycle-callback"
)

// OutboxState is the delivery state of a durable outbound record.
type OutboxState string

const (
	OutboxPending  OutboxState = "pending"
	OutboxInflight OutboxState = "inflight"
	OutboxAcked    OutboxState = "acked"
	OutboxDead     OutboxState = "dead"
)

// OutboxEntry is a single durable at-least-once delivery record.
type OutboxEntry struct {
	EntryID         string
	Kind            OutboxKind
	ResourceID      string
	Payload         []byte
	IdempotencyKey  string
	AttemptCount    int
	NextAttemptAt   time.Time
	State           OutboxState
	LeaseToken      string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// DeadLetterReason/LastError are populated when the entry exhausts
	// retries (supplemented feature, modeled on gasbank.DeadLetter).
	DeadLetterReason string
	LastError        string
}

// ResourceSnapshot is the usage reporter's last-seen cumulative-counter state
// for one resource, used to compute deltas and detect counter resets.
type ResourceSnapshot struct {
	ResourceID          string
	CumulativeAt        time.Time
	Cumulative          UsageMetrics
	LastEmittedPeriodEnd time.Time
	Finalized           bool
}
