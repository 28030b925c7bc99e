package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
)

type fakePlacer struct {
	decision domain.SchedulingDecision
	err      error
}

func (f *fakePlacer) Place(job domain.Job, clusters []domain.Cluster, roster map[string][]domain.Node) (domain.SchedulingDecision, error) {
	return f.decision, f.err
}

type fakeRoster struct{}

func (fakeRoster) Clusters() []domain.Cluster                    { return nil }
func (fakeRoster) ActiveRoster() map[string][]domain.Node        { return nil }

type fakeSettlement struct{ calls int }

func (f *fakeSettlement) OnJobTerminal(ctx context.Context, job domain.Job) error {
	f.calls++
	return nil
}

type fakeAudit struct{ records []domain.TransitionRecord }

func (f *fakeAudit) Append(r domain.TransitionRecord) { f.records = append(f.records, r) }

func TestSubmit_SchedulesOnSuccess(t *testing.T) {
	placer := &fakePlacer{decision: domain.SchedulingDecision{JobID: "j1", SelectedClusterID: "c1", SelectedNodeIDs: []string{"n1"}}}
	audit := &fakeAudit{}
	engine := New(placer, fakeRoster{}, nil, audit, nil)

	require.NoError(t, engine.Submit(context.Background(), domain.Job{JobID: "j1"}))

	job, err := engine.Job("j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobScheduled, job.State)
	assert.NotNil(t, job.Decision)
}

func TestAdvanceProvider_FullHappyPath(t *testing.T) {
	placer := &fakePlacer{decision: domain.SchedulingDecision{JobID: "j1"}}
	settlement := &fakeSettlement{}
	engine := New(placer, fakeRoster{}, settlement, &fakeAudit{}, nil)
	require.NoError(t, engine.Submit(context.Background(), domain.Job{JobID: "j1"}))

	require.NoError(t, engine.AdvanceProvider(context.Background(), "j1", "dispatch-ack"))
	require.NoError(t, engine.AdvanceProvider(context.Background(), "j1", "start"))
	require.NoError(t, engine.AdvanceProvider(context.Background(), "j1", "complete"))

	job, err := engine.Job("j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.State)
	assert.NotNil(t, job.TerminalAt)
	assert.Equal(t, 1, settlement.calls)
}

func TestAdvanceProvider_RejectsIllegalTransition(t *testing.T) {
	placer := &fakePlacer{decision: domain.SchedulingDecision{JobID: "j1"}}
	engine := New(placer, fakeRoster{}, nil, &fakeAudit{}, nil)
	require.NoError(t, engine.Submit(context.Background(), domain.Job{JobID: "j1"}))

	err := engine.AdvanceProvider(context.Background(), "j1", "complete")
	require.Error(t, err)
	assert.Equal(t, apierrors.CodeInvalidTransition, apierrors.As(err).Code)
}

func TestCancel_RequiresSecondApprovalWhenGated(t *testing.T) {
	placer := &fakePlacer{decision: domain.SchedulingDecision{JobID: "j1"}}
	engine := New(placer, fakeRoster{}, nil, &fakeAudit{}, nil)
	job := domain.Job{JobID: "j1", CancelRequiresSecondApproval: true}
	require.NoError(t, engine.Submit(context.Background(), job))

	err := engine.Cancel(context.Background(), "j1", "admin-1")
	require.Error(t, err)

	require.NoError(t, engine.Cancel(context.Background(), "j1", "admin-2"))
	got, err := engine.Job("j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCancelled, got.State)
}

func TestSubmit_RetriesThenFailsAfterMaxAttempts(t *testing.T) {
	placer := &fakePlacer{err: assertErr("no capacity")}
	engine := New(placer, fakeRoster{}, nil, &fakeAudit{}, nil)

	require.NoError(t, engine.Submit(context.Background(), domain.Job{JobID: "j1"}))
	job, err := engine.Job("j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobSubmitted, job.State)

	for i := 0; i < maxSchedulingRetries; i++ {
		_ = engine.attemptSchedule(context.Background(), "j1")
	}
	job, err = engine.Job("j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.State)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
