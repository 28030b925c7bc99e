package domain

import "time"

// JobState is a node in the §4.4 job lifecycle state graph.
type JobState string

const (
	JobSubmitted JobState = "submitted"
	JobScheduled JobState = "scheduled"
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Terminal reports whether a state has no outgoing transitions.
func (s JobState) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// jobTransitions is the adjacency list of the §4.4 state graph.
var jobTransitions = map[JobState][]JobState{
	JobSubmitted: {JobScheduled, JobFailed, JobCancelled},
	JobScheduled: {JobQueued, JobFailed, JobCancelled},
	JobQueued:    {JobRunning, JobFailed, JobCancelled},
	JobRunning:   {JobCompleted, JobFailed, JobCancelled},
	JobCompleted: {},
	JobFailed:    {},
	JobCancelled: {},
}

// CanTransition reports whether `to` is a legal successor of `from`.
func CanTransition(from, to JobState) bool {
	for _, candidate := range jobTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// WorkloadSpec describes the container/command a job runs.
type WorkloadSpec struct {
	Image   string
	Command string
	Args    []string
	Env     map[string]string
}

// ResourceDemand is per-node resource demand for a job.
type ResourceDemand struct {
	Nodes       int
	CPUPerNode  int
	MemGBPerNode int
	GPUsPerNode int
	GPUType     string
}

// PlacementConstraints narrow the scheduler's candidate set.
type PlacementConstraints struct {
	RegionAllowList []string
	RequireGPUType  string
	SameRack        bool
	SameZone        bool
}

// SchedulingDecision records where a job was placed. Set once, on entry to
// JobScheduled, and never rewritten (§3 invariant).
type SchedulingDecision struct {
	JobID            string
	SelectedClusterID string
	SelectedNodeIDs  []string
	Score            float64
	DecidedAt        time.Time
	TieBreakerSeed   string
}

// Job is a customer's compute request and its lifecycle state.
type Job struct {
	JobID           string
	OfferingID      string
	CustomerAddress string
	EscrowID        string
	Workload        WorkloadSpec
	Resources       ResourceDemand
	Constraints     PlacementConstraints
	MaxRuntime      time.Duration
	State           JobState
	Decision        *SchedulingDecision
	SubmittedAt     time.Time
	TerminalAt      *time.Time
	ExitCode        *int

	// Schedule is an optional cron expression (supplemented feature): when
	// set, the lifecycle engine resubmits a fresh `submitted` job using the
	// same offering/escrow each time it fires, in addition to (not instead
	// of) the original one-shot submission.
	Schedule string

	// SchedulerRetryCount tracks §4.4 "N retries" before submitted->failed.
	SchedulerRetryCount int

	// ApprovalPolicy gates admin-initiated cancellations above a configured
	// value threshold (supplemented feature, modeled on gasbank withdrawal
	// approvals).
	CancelRequiresSecondApproval bool
	CancelApprovedBy             []string
}

// TransitionRecord is a single append-only audit-log entry (§4.4).
type TransitionRecord struct {
	JobID     string
	From      JobState
	To        JobState
	Reason    string
	Timestamp time.Time
}
