// Package chainbridge adapts chain events into lifecycle engine transitions
// (spec §5 "chain events -> event client -> lifecycle engine, to advance
// orders"). It is a thin Subscriber: it must not block the chain client's
// synchronous dispatch loop, so every AdvanceProvider call runs on its own
// goroutine.
package chainbridge

import (
	"context"

	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/logging"
)

// Advancer is the subset of lifecycle.Engine the bridge drives.
type Advancer interface {
	AdvanceProvider(ctx context.Context, jobID string, event string) error
}

// Bridge implements chainclient.Subscriber, translating
// hpc_job.status_changed events into lifecycle engine transitions.
type Bridge struct {
	engine Advancer
	logger *logging.Logger
}

// New builds a Bridge.
func New(engine Advancer, logger *logging.Logger) *Bridge {
	return &Bridge{engine: engine, logger: logger}
}

// statusToEvent maps the chain's reported HPC job status attribute to the
// lifecycle engine's provider event vocabulary.
var statusToEvent = map[string]string{
	"dispatched": "dispatch-ack",
	"running":    "start",
	"completed":  "complete",
	"failed":     "fail",
}

// OnChainEvent implements chainclient.Subscriber. It only reacts to
// hpc_job.status_changed events; every other canonical type is ignored
// here (other subscribers, e.g. a settlement broadcaster, may care about
// settlement.executed independently).
func (b *Bridge) OnChainEvent(event domain.ChainEvent) {
	if event.Type != domain.EventHPCJobStatusChanged {
		return
	}

	jobID := event.Attributes["jobId"]
	status := event.Attributes["status"]
	if jobID == "" || status == "" {
		return
	}

	providerEvent, ok := statusToEvent[status]
	if !ok {
		return
	}

	// Dispatch is cheap; the engine itself holds the per-job lock only for
	// the duration of the transition, so a direct call would not violate
	// the "must not perform long work inline" contract either. The
	// goroutine hop is kept anyway so a future slower handler (e.g. one
	// that also notifies an external system) never risks stalling the
	// chain client's dispatch loop.
	go func() {
		if err := b.engine.AdvanceProvider(context.Background(), jobID, providerEvent); err != nil && b.logger != nil {
			b.logger.WithFields(map[string]interface{}{"jobId": jobID, "chainEvent": event.EventID}).
				WithError(err).Warn("dropping chain-driven lifecycle transition")
		}
	}()
}
