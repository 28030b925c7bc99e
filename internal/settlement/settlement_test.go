package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
)

type fakeFinalizer struct {
	err error
}

func (f *fakeFinalizer) FinalizeResource(context.Context, string, time.Time) (*domain.UsageRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.UsageRecord{IsFinal: true}, nil
}

type fakeStore struct {
	entries []domain.OutboxEntry
}

func (f *fakeStore) Enqueue(_ context.Context, entry domain.OutboxEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func TestOnJobTerminal_CompletedEnqueuesSettlement(t *testing.T) {
	store := &fakeStore{}
	trigger := New(&fakeFinalizer{}, store, 0)

	job := domain.Job{JobID: "job-1", EscrowID: "escrow-1", State: domain.JobCompleted}
	require.NoError(t, trigger.OnJobTerminal(context.Background(), job))

	require.Len(t, store.entries, 1)
	assert.Equal(t, domain.OutboxSettlement, store.entries[0].Kind)
	assert.Equal(t, "job-1", store.entries[0].ResourceID)
}

func TestOnJobTerminal_FailedEnqueuesSettlementWithFailedOutcome(t *testing.T) {
	store := &fakeStore{}
	trigger := New(&fakeFinalizer{}, store, 0)

	job := domain.Job{JobID: "job-2", EscrowID: "escrow-2", State: domain.JobFailed}
	require.NoError(t, trigger.OnJobTerminal(context.Background(), job))

	require.Len(t, store.entries, 1)
	assert.Equal(t, domain.OutboxSettlement, store.entries[0].Kind)
	assert.Contains(t, string(store.entries[0].Payload), `"outcome":"failed"`)
}

func TestOnJobTerminal_CancelledEnqueuesSettlementWithCancelledOutcome(t *testing.T) {
	store := &fakeStore{}
	trigger := New(&fakeFinalizer{}, store, 0)

	job := domain.Job{JobID: "job-2b", EscrowID: "escrow-2b", State: domain.JobCancelled}
	require.NoError(t, trigger.OnJobTerminal(context.Background(), job))

	require.Len(t, store.entries, 1)
	assert.Contains(t, string(store.entries[0].Payload), `"outcome":"cancelled"`)
}

func TestOnJobTerminal_NonTerminalStateDoesNotEnqueueSettlement(t *testing.T) {
	store := &fakeStore{}
	trigger := New(&fakeFinalizer{}, store, 0)

	job := domain.Job{JobID: "job-2c", State: domain.JobRunning}
	require.NoError(t, trigger.OnJobTerminal(context.Background(), job))

	assert.Empty(t, store.entries)
}

func TestOnJobTerminal_AlreadyFinalizedConflictIsTolerated(t *testing.T) {
	store := &fakeStore{}
	trigger := New(&fakeFinalizer{err: apierrors.Conflict("resource already finalized")}, store, 0)

	job := domain.Job{JobID: "job-3", EscrowID: "escrow-3", State: domain.JobCompleted}
	require.NoError(t, trigger.OnJobTerminal(context.Background(), job))
	require.Len(t, store.entries, 1)
}

func TestOnJobTerminal_OtherFinalizeErrorPropagates(t *testing.T) {
	store := &fakeStore{}
	trigger := New(&fakeFinalizer{err: apierrors.Internal("boom", nil)}, store, 0)

	job := domain.Job{JobID: "job-4", State: domain.JobCompleted}
	err := trigger.OnJobTerminal(context.Background(), job)
	assert.Error(t, err)
	assert.Empty(t, store.entries)
}
