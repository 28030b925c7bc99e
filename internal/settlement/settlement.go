// Package settlement implements lifecycle.SettlementTrigger: on a job's
// entry to a terminal state it finalizes the job's usage record and, for a
// successful completion, enqueues an outbox entry that drives the
// escrow-release settlement on the marketplace (spec §4.4 "running ->
// completed ... triggers final usage record and settlement").
package settlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/signing"
)

// UsageFinalizer is the subset of usage.Reporter the trigger depends on.
type UsageFinalizer interface {
	FinalizeResource(ctx context.Context, resourceID string, at time.Time) (*domain.UsageRecord, error)
}

// Store is the outbox write path for settlement entries.
type Store interface {
	Enqueue(ctx context.Context, entry domain.OutboxEntry) error
}

// Trigger implements lifecycle.SettlementTrigger.
type Trigger struct {
	usage  UsageFinalizer
	store  Store
	bucket time.Duration
}

// New builds a Trigger. idempotencyBucket <= 0 falls back to
// signing.DefaultIdempotencyBucket.
func New(usage UsageFinalizer, store Store, idempotencyBucket time.Duration) *Trigger {
	return &Trigger{usage: usage, store: store, bucket: idempotencyBucket}
}

type settlementPayload struct {
	JobID           string `json:"jobId"`
	EscrowID        string `json:"escrowId"`
	CustomerAddress string `json:"customerAddress"`
	OfferingID      string `json:"offeringId"`
	Outcome         string `json:"outcome"`
}

// terminalOutcomes maps every terminal job state to the settlement outcome
// the marketplace applies to escrow: completed releases the full amount
// owed for metered usage, failed and cancelled settle only the usage
// consumed so far and refund the remainder (spec §4.4 "running -> failed ...
// settles only consumed usage", "cancelled ... usage accrued so far is
// billed", "releases escrow refund").
var terminalOutcomes = map[domain.JobState]string{
	domain.JobCompleted: "completed",
	domain.JobFailed:    "failed",
	domain.JobCancelled: "cancelled",
}

// OnJobTerminal finalizes the job's usage record and enqueues a settlement
// entry so the marketplace can release (or refund) escrow, on every
// terminal transition -- not just a successful completion, since failed and
// cancelled jobs still need their accrued usage billed and the remainder
// refunded. A failed settlement enqueue does not revert the job state (spec
// §4.4 "Settlement failures ... produce a retriable outbox entry" -- the
// outbox's own retry loop, not this call, is the retriable path once
// enqueued; an error returned here means the entry was never durably
// recorded and is surfaced to the caller to log).
func (t *Trigger) OnJobTerminal(ctx context.Context, job domain.Job) error {
	if _, err := t.usage.FinalizeResource(ctx, job.JobID, time.Now()); err != nil {
		svcErr := apierrors.As(err)
		if svcErr == nil || svcErr.Code != apierrors.CodeConflict {
			return err
		}
		// Already finalized by an earlier terminal transition attempt; fine.
	}

	outcome, ok := terminalOutcomes[job.State]
	if !ok {
		return nil
	}

	payload, err := json.Marshal(settlementPayload{
		JobID: job.JobID, EscrowID: job.EscrowID,
		CustomerAddress: job.CustomerAddress, OfferingID: job.OfferingID,
		Outcome: outcome,
	})
	if err != nil {
		return err
	}

	now := time.Now()
	entry := domain.OutboxEntry{
		Kind:           domain.OutboxSettlement,
		ResourceID:     job.JobID,
		Payload:        payload,
		IdempotencyKey: signing.IdempotencyKey(job.JobID, "settlement-"+outcome, now, t.bucket),
		State:          domain.OutboxPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return t.store.Enqueue(ctx, entry)
}
