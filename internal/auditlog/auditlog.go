// Package auditlog implements lifecycle.AuditLog as an append-only stream
// of transition records onto the general-purpose structured logger (spec
// §4.4 "append-only audit log of every transition").
package auditlog

import (
	"context"

	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/logging"
)

// Log writes every job transition through logging.Logger.LogTransition.
type Log struct {
	logger *logging.Logger
}

// New builds a Log.
func New(logger *logging.Logger) *Log {
	return &Log{logger: logger}
}

// Append implements lifecycle.AuditLog.
func (l *Log) Append(record domain.TransitionRecord) {
	l.logger.LogTransition(context.Background(), record.JobID, string(record.From), string(record.To), record.Reason)
}
