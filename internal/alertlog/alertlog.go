// Package alertlog implements monitor.AlertSink by logging every health
// transition through the general-purpose structured logger (spec §4.2
// "classifier emits an alert on every transition").
package alertlog

import (
	"github.com/virtengine/virtengine-sub011/internal/logging"
	"github.com/virtengine/virtengine-sub011/internal/monitor"
)

// Sink logs health transitions.
type Sink struct {
	logger *logging.Logger
}

// New builds a Sink.
func New(logger *logging.Logger) *Sink {
	return &Sink{logger: logger}
}

// OnHealthTransition implements monitor.AlertSink.
func (s *Sink) OnHealthTransition(alert monitor.Alert) {
	s.logger.WithFields(map[string]interface{}{
		"nodeId": alert.NodeID,
		"from":   string(alert.From),
		"to":     string(alert.To),
		"at":     alert.At,
	}).Warn("node health transition")
}
