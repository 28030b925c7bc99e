package chainclient

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// eventLogger is a dedicated zerolog logger for the chain subscription
// client's high-volume per-event notification stream, where logrus's
// reflection-based Fields would add avoidable allocation at this volume
// (mirrors internal/aggregator's choice of zap for its own hot path).
type eventLogger struct {
	zerolog.Logger
}

func newEventLogger() eventLogger {
	return eventLogger{zerolog.New(os.Stdout).With().Timestamp().Str("component", "chainclient").Logger()}
}

func (l eventLogger) event(eventType, eventID string, blockHeight uint64) {
	l.Info().
		Str("event_type", eventType).
		Str("event_id", eventID).
		Uint64("block_height", blockHeight).
		Time("dispatched_at", time.Now()).
		Msg("chain event dispatched")
}

func (l eventLogger) dropped(rawType string) {
	l.Debug().Str("raw_type", rawType).Msg("chain event dropped: unmapped raw type")
}

func (l eventLogger) reconnecting(attempt int, delay time.Duration) {
	l.Warn().Int("attempt", attempt).Dur("delay", delay).Msg("chain client reconnecting")
}

func (l eventLogger) connected() {
	l.Info().Msg("chain client connected")
}
