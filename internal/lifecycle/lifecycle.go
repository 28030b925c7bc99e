// Package lifecycle drives the job state machine described in spec §4.4:
// submitted -> scheduled -> queued -> running -> completed/failed, with
// cancellation reachable from any non-terminal state. It invokes the
// scheduler on entry, and hands off to the usage reporter and settlement
// path on exit to a terminal state.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/logging"
	"github.com/virtengine/virtengine-sub011/internal/resilience"
)

// Placer is the subset of the scheduler the engine depends on.
type Placer interface {
	Place(job domain.Job, clusters []domain.Cluster, roster map[string][]domain.Node) (domain.SchedulingDecision, error)
}

// Roster supplies the live cluster/node view the engine passes to the
// scheduler, and lets the engine reserve capacity once a decision lands.
type Roster interface {
	Clusters() []domain.Cluster
	ActiveRoster() map[string][]domain.Node
}

// SettlementTrigger is invoked on entry to a terminal state so the
// settlement/usage-reporter path can run (spec §4.4 "triggers final usage
// record and settlement").
type SettlementTrigger interface {
	OnJobTerminal(ctx context.Context, job domain.Job) error
}

// AuditLog receives every transition record (spec §4.4 append-only log).
type AuditLog interface {
	Append(record domain.TransitionRecord)
}

const maxSchedulingRetries = 5

// Engine owns the job table and its per-job locks.
type Engine struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry

	placer     Placer
	roster     Roster
	settlement SettlementTrigger
	audit      AuditLog
	logger     *logging.Logger
	retryCfg   resilience.RetryConfig

	retryQueue chan string
	stopCh     chan struct{}
	doneCh     chan struct{}
}

type jobEntry struct {
	mu  sync.Mutex
	job domain.Job
}

// New creates an Engine.
func New(placer Placer, roster Roster, settlement SettlementTrigger, audit AuditLog, logger *logging.Logger) *Engine {
	return &Engine{
		jobs:       make(map[string]*jobEntry),
		placer:     placer,
		roster:     roster,
		settlement: settlement,
		audit:      audit,
		logger:     logger,
		retryCfg: resilience.RetryConfig{
			MaxAttempts:  maxSchedulingRetries,
			InitialDelay: time.Second,
			MaxDelay:     5 * time.Minute,
			Multiplier:   2,
			Jitter:       0.2,
		},
		retryQueue: make(chan string, 1024),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Submit admits a new job and attempts to schedule it immediately.
func (e *Engine) Submit(ctx context.Context, job domain.Job) error {
	job.State = domain.JobSubmitted
	job.SubmittedAt = time.Now()

	e.mu.Lock()
	if _, exists := e.jobs[job.JobID]; exists {
		e.mu.Unlock()
		return apierrors.Conflict("job already submitted")
	}
	e.jobs[job.JobID] = &jobEntry{job: job}
	e.mu.Unlock()

	return e.attemptSchedule(ctx, job.JobID)
}

func (e *Engine) attemptSchedule(ctx context.Context, jobID string) error {
	entry, err := e.lookup(jobID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.job.State != domain.JobSubmitted {
		return nil
	}

	decision, err := e.placer.Place(entry.job, e.roster.Clusters(), e.roster.ActiveRoster())
	if err != nil {
		entry.job.SchedulerRetryCount++
		if entry.job.SchedulerRetryCount >= maxSchedulingRetries {
			if err := e.transitionLocked(entry, domain.JobFailed, "no placement after max retries"); err != nil {
				return err
			}
			if e.settlement != nil {
				if err := e.settlement.OnJobTerminal(ctx, entry.job); err != nil && e.logger != nil {
					e.logger.WithError(err).Error("settlement trigger failed on scheduling exhaustion")
				}
			}
			return nil
		}
		select {
		case e.retryQueue <- jobID:
		default:
		}
		return nil
	}

	entry.job.Decision = &decision
	return e.transitionLocked(entry, domain.JobScheduled, "scheduling decision recorded")
}

// AdvanceProvider applies a provider-reported lifecycle event: dispatch ack,
// first start, completion, or failure (spec §4.4 transitions driven by
// provider callbacks at /api/v1/callbacks/lifecycle).
func (e *Engine) AdvanceProvider(ctx context.Context, jobID string, event string) error {
	entry, err := e.lookup(jobID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	var to domain.JobState
	switch event {
	case "dispatch-ack":
		to = domain.JobQueued
	case "start":
		to = domain.JobRunning
	case "complete":
		to = domain.JobCompleted
	case "fail":
		to = domain.JobFailed
	default:
		return apierrors.InvalidInput("event", "unknown provider event")
	}

	if err := e.transitionLocked(entry, to, "provider callback: "+event); err != nil {
		return err
	}

	if to.Terminal() && e.settlement != nil {
		if err := e.settlement.OnJobTerminal(ctx, entry.job); err != nil && e.logger != nil {
			e.logger.WithError(err).Error("settlement trigger failed, job remains terminal with retriable outbox entry")
		}
	}
	return nil
}

// Cancel moves a job to cancelled from any non-terminal state. Admin
// cancellations above the configured value threshold require a second
// approval (supplemented feature, CancelRequiresSecondApproval).
func (e *Engine) Cancel(ctx context.Context, jobID, approverID string) error {
	entry, err := e.lookup(jobID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.job.CancelRequiresSecondApproval {
		if !containsApprover(entry.job.CancelApprovedBy, approverID) {
			entry.job.CancelApprovedBy = append(entry.job.CancelApprovedBy, approverID)
		}
		if len(entry.job.CancelApprovedBy) < 2 {
			return apierrors.Forbidden("cancellation requires a second approval")
		}
	}

	if err := e.transitionLocked(entry, domain.JobCancelled, "cancelled"); err != nil {
		return err
	}
	if e.settlement != nil {
		if err := e.settlement.OnJobTerminal(ctx, entry.job); err != nil && e.logger != nil {
			e.logger.WithError(err).Error("settlement trigger failed on cancel")
		}
	}
	return nil
}

func containsApprover(approvers []string, id string) bool {
	for _, a := range approvers {
		if a == id {
			return true
		}
	}
	return false
}

// transitionLocked applies a transition; caller must hold entry.mu.
func (e *Engine) transitionLocked(entry *jobEntry, to domain.JobState, reason string) error {
	from := entry.job.State
	if !domain.CanTransition(from, to) {
		return apierrors.InvalidTransition(string(from), string(to))
	}

	entry.job.State = to
	if to.Terminal() {
		now := time.Now()
		entry.job.TerminalAt = &now
	}

	record := domain.TransitionRecord{JobID: entry.job.JobID, From: from, To: to, Reason: reason, Timestamp: time.Now()}
	if e.audit != nil {
		e.audit.Append(record)
	}
	if e.logger != nil {
		e.logger.LogTransition(context.Background(), entry.job.JobID, string(from), string(to), reason)
	}
	return nil
}

// Job returns a snapshot copy of one job.
func (e *Engine) Job(jobID string) (domain.Job, error) {
	entry, err := e.lookup(jobID)
	if err != nil {
		return domain.Job{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job, nil
}

func (e *Engine) lookup(jobID string) (*jobEntry, error) {
	e.mu.RLock()
	entry, ok := e.jobs[jobID]
	e.mu.RUnlock()
	if !ok {
		return nil, apierrors.NotFound("job", jobID)
	}
	return entry, nil
}

// RunRetryQueue drains the scheduling retry queue on its own task, honoring
// ctx cancellation (spec §5 "the job lifecycle engine's retry queue" runs
// on its own independent task).
func (e *Engine) RunRetryQueue(ctx context.Context) {
	defer close(e.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case jobID := <-e.retryQueue:
			delay := resilience.AddJitter(e.retryCfg.InitialDelay, e.retryCfg.Jitter)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			_ = e.attemptSchedule(ctx, jobID)
		}
	}
}

// Stop signals RunRetryQueue to exit.
func (e *Engine) Stop() {
	close(e.stopCh)
	<-e.doneCh
}
