package chainbridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtengine/virtengine-sub011/internal/domain"
)

type recordingAdvancer struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingAdvancer) AdvanceProvider(_ context.Context, jobID string, event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, jobID+":"+event)
	return nil
}

func (r *recordingAdvancer) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestOnChainEvent_MapsStatusToProviderEvent(t *testing.T) {
	adv := &recordingAdvancer{}
	b := New(adv, nil)

	b.OnChainEvent(domain.ChainEvent{
		Type:       domain.EventHPCJobStatusChanged,
		Attributes: map[string]string{"jobId": "job-1", "status": "running"},
	})

	require.Eventually(t, func() bool {
		return len(adv.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"job-1:start"}, adv.snapshot())
}

func TestOnChainEvent_IgnoresOtherEventTypes(t *testing.T) {
	adv := &recordingAdvancer{}
	b := New(adv, nil)

	b.OnChainEvent(domain.ChainEvent{Type: domain.EventOrderCreated, Attributes: map[string]string{"jobId": "job-1", "status": "running"}})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, adv.snapshot())
}

func TestOnChainEvent_IgnoresUnknownStatus(t *testing.T) {
	adv := &recordingAdvancer{}
	b := New(adv, nil)

	b.OnChainEvent(domain.ChainEvent{
		Type:       domain.EventHPCJobStatusChanged,
		Attributes: map[string]string{"jobId": "job-1", "status": "paused"},
	})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, adv.snapshot())
}
