// Package usage implements the usage reporter (spec §4.5): it turns raw
// cumulative counters into discrete, signed, billable usage records and
// writes them to the durable outbox for at-least-once delivery.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/signing"
)

// Store is the outbox write path the reporter depends on.
type Store interface {
	Enqueue(ctx context.Context, entry domain.OutboxEntry) error
}

// Signer signs the final usage record payload before it is enqueued.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// DefaultMinReportingPeriod bounds volume (spec §4.5).
const DefaultMinReportingPeriod = 60 * time.Second

// Reporter maintains per-resource last-snapshot state and derives usage
// records on each RecordMetrics call.
type Reporter struct {
	mu        sync.Mutex
	snapshots map[string]domain.ResourceSnapshot

	store     Store
	signer    Signer
	minPeriod time.Duration
	bucket    time.Duration
}

// New creates a Reporter. idempotencyBucket <= 0 falls back to
// signing.DefaultIdempotencyBucket.
func New(store Store, signer Signer, minPeriod, idempotencyBucket time.Duration) *Reporter {
	if minPeriod <= 0 {
		minPeriod = DefaultMinReportingPeriod
	}
	return &Reporter{
		snapshots: make(map[string]domain.ResourceSnapshot),
		store:     store,
		signer:    signer,
		minPeriod: minPeriod,
		bucket:    idempotencyBucket,
	}
}

// RecordMetrics computes the delta since the last snapshot for resourceID
// and, if the covered period meets minReportingPeriod, emits and enqueues a
// usage record.
func (r *Reporter) RecordMetrics(ctx context.Context, resourceID string, cumulative domain.UsageMetrics, at time.Time) (*domain.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, seen := r.snapshots[resourceID]
	if !seen {
		r.snapshots[resourceID] = domain.ResourceSnapshot{ResourceID: resourceID, CumulativeAt: at, Cumulative: cumulative, LastEmittedPeriodEnd: at}
		return nil, nil
	}

	if snap.Finalized {
		return nil, apierrors.Conflict("resource already finalized")
	}
	if at.Sub(snap.LastEmittedPeriodEnd) < r.minPeriod {
		return nil, nil
	}

	delta := computeDelta(snap.Cumulative, cumulative)

	record, err := r.buildRecord(resourceID, snap.LastEmittedPeriodEnd, at, delta, false)
	if err != nil {
		return nil, err
	}

	if err := r.enqueue(ctx, record); err != nil {
		return nil, err
	}

	r.snapshots[resourceID] = domain.ResourceSnapshot{
		ResourceID: resourceID, CumulativeAt: at, Cumulative: cumulative, LastEmittedPeriodEnd: at,
	}
	return &record, nil
}

// FinalizeResource emits a final record covering from the last emitted
// period end through at, and marks the resource closed (spec §4.5
// FinalizeResource).
func (r *Reporter) FinalizeResource(ctx context.Context, resourceID string, at time.Time) (*domain.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, seen := r.snapshots[resourceID]
	if !seen {
		snap = domain.ResourceSnapshot{ResourceID: resourceID, LastEmittedPeriodEnd: at}
	}
	if snap.Finalized {
		return nil, apierrors.Conflict("resource already finalized")
	}

	record, err := r.buildRecord(resourceID, snap.LastEmittedPeriodEnd, at, snap.Cumulative, true)
	if err != nil {
		return nil, err
	}
	if err := r.enqueue(ctx, record); err != nil {
		return nil, err
	}

	snap.Finalized = true
	snap.LastEmittedPeriodEnd = at
	r.snapshots[resourceID] = snap
	return &record, nil
}

// computeDelta subtracts the last-seen cumulative counters from the new
// reading, treating any decrease as a counter reset: "new epoch", delta
// computed from zero (spec §4.5 Monotonicity).
func computeDelta(last, current domain.UsageMetrics) domain.UsageMetrics {
	return domain.UsageMetrics{
		CPUHours:       deltaOrReset(last.CPUHours, current.CPUHours),
		MemGBHours:     deltaOrReset(last.MemGBHours, current.MemGBHours),
		GPUHours:       deltaOrReset(last.GPUHours, current.GPUHours),
		StorageGBHours: deltaOrReset(last.StorageGBHours, current.StorageGBHours),
		NetworkGB:      deltaOrReset(last.NetworkGB, current.NetworkGB),
	}
}

func deltaOrReset(last, current float64) float64 {
	if current < last {
		return current
	}
	return current - last
}

func (r *Reporter) buildRecord(resourceID string, periodStart, periodEnd time.Time, metrics domain.UsageMetrics, isFinal bool) (domain.UsageRecord, error) {
	if !periodEnd.After(periodStart) {
		return domain.UsageRecord{}, apierrors.InvalidInput("periodEnd", "must be after periodStart")
	}

	record := domain.UsageRecord{
		UsageID:     signing.UsageID(resourceID, periodStart.Unix(), periodEnd.Unix()),
		ResourceID:  resourceID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Metrics:     metrics,
		IsFinal:     isFinal,
	}

	if r.signer != nil {
		payload, err := encodeRecord(record)
		if err != nil {
			return domain.UsageRecord{}, err
		}
		sig, err := r.signer.Sign(payload)
		if err != nil {
			return domain.UsageRecord{}, apierrors.Internal("sign usage record", err)
		}
		record.ProviderSignature = sig
	}
	return record, nil
}

func (r *Reporter) enqueue(ctx context.Context, record domain.UsageRecord) error {
	payload, err := encodeRecord(record)
	if err != nil {
		return err
	}

	entry := domain.OutboxEntry{
		EntryID:        record.UsageID,
		Kind:           domain.OutboxUsage,
		ResourceID:     record.ResourceID,
		Payload:        payload,
		IdempotencyKey: signing.IdempotencyKey(record.ResourceID, "usage-report", record.PeriodEnd, r.bucket),
		State:          domain.OutboxPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	return r.store.Enqueue(ctx, entry)
}
