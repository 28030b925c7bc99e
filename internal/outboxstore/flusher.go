package outboxstore

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/metrics"
	"github.com/virtengine/virtengine-sub011/internal/resilience"
)

// Deliverer delivers one outbox entry to its destination (the marketplace
// usage/settlement/lifecycle-callback endpoints).
type Deliverer interface {
	Deliver(ctx context.Context, entry domain.OutboxEntry) error
}

// FlusherConfig configures the poll/claim/deliver loop.
type FlusherConfig struct {
	Kind          domain.OutboxKind
	BatchSize     int
	PollInterval  time.Duration
	MaxAttempts   int
	Retry         resilience.RetryConfig
	Breaker       resilience.Config
	PurgeAfter    time.Duration
	PurgeSchedule string // cron expression, default daily at 03:00
}

// DefaultFlusherConfig matches spec §4.5/§6: 5s poll, batch 20, 10 attempts,
// 30-day purge retention swept daily.
func DefaultFlusherConfig(kind domain.OutboxKind) FlusherConfig {
	return FlusherConfig{
		Kind:          kind,
		BatchSize:     20,
		PollInterval:  5 * time.Second,
		MaxAttempts:   10,
		Retry:         resilience.DefaultRetryConfig(),
		Breaker:       resilience.DefaultConfig(),
		PurgeAfter:    30 * 24 * time.Hour,
		PurgeSchedule: "0 3 * * *",
	}
}

// Flusher drains pending outbox entries of one kind, delivering them with
// retry/backoff and a circuit breaker guarding the downstream endpoint, and
// periodically purges acked entries past retention (spec §6).
type Flusher struct {
	store     *Store
	deliverer Deliverer
	metrics   *metrics.Metrics
	cfg       FlusherConfig
	breaker   *resilience.CircuitBreaker
	logger    *zap.Logger

	cron   *cron.Cron
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewFlusher builds a Flusher.
func NewFlusher(store *Store, deliverer Deliverer, m *metrics.Metrics, cfg FlusherConfig, logger *zap.Logger) *Flusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flusher{
		store:     store,
		deliverer: deliverer,
		metrics:   m,
		cfg:       cfg,
		breaker:   resilience.New(cfg.Breaker),
		logger:    logger,
		cron:      cron.New(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Run blocks, polling on cfg.PollInterval until ctx is cancelled or Stop is
// called. On shutdown it releases any entries this flusher holds inflight
// back to pending so a restart retries them (spec §5).
func (f *Flusher) Run(ctx context.Context) {
	defer close(f.doneCh)

	if _, err := f.cron.AddFunc(f.cfg.PurgeSchedule, func() {
		n, err := f.store.PurgeAcked(ctx, f.cfg.PurgeAfter)
		if err != nil {
			f.logger.Warn("outbox purge failed", zap.Error(err))
			return
		}
		f.logger.Info("outbox purge completed", zap.Int64("purged", n))
	}); err != nil {
		f.logger.Warn("outbox purge schedule invalid, purge disabled", zap.Error(err))
	}
	f.cron.Start()
	defer f.cron.Stop()

	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = f.store.ReleaseInflight(context.Background())
			return
		case <-f.stopCh:
			_ = f.store.ReleaseInflight(context.Background())
			return
		case <-ticker.C:
			f.flushOnce(ctx)
		}
	}
}

// Stop signals Run to exit and waits for it to finish.
func (f *Flusher) Stop() {
	close(f.stopCh)
	<-f.doneCh
}

func (f *Flusher) flushOnce(ctx context.Context) {
	entries, err := f.store.ClaimBatch(ctx, f.cfg.Kind, f.cfg.BatchSize)
	if err != nil {
		f.logger.Warn("claim batch failed", zap.Error(err))
		return
	}
	if f.metrics != nil {
		f.metrics.OutboxDepth.WithLabelValues(string(f.cfg.Kind)).Set(float64(len(entries)))
	}

	for _, entry := range entries {
		f.deliverOne(ctx, entry)
	}
}

func (f *Flusher) deliverOne(ctx context.Context, entry domain.OutboxEntry) {
	err := f.breaker.Execute(ctx, func() error {
		return resilience.Retry(ctx, f.cfg.Retry, func() error {
			return f.deliverer.Deliver(ctx, entry)
		})
	})

	if err == nil {
		if markErr := f.store.MarkAcked(ctx, entry.EntryID, entry.LeaseToken); markErr != nil {
			f.logger.Warn("mark acked failed", zap.String("entry_id", entry.EntryID), zap.Error(markErr))
			return
		}
		if f.metrics != nil {
			f.metrics.RecordOutboxDelivery(string(f.cfg.Kind), "acked")
		}
		return
	}

	nextAttempt := time.Now().Add(resilience.NextDelay(f.cfg.Retry.InitialDelay, f.cfg.Retry))
	if markErr := f.store.MarkFailed(ctx, entry.EntryID, entry.LeaseToken, nextAttempt, f.cfg.MaxAttempts, errString(err)); markErr != nil {
		f.logger.Warn("mark failed failed", zap.String("entry_id", entry.EntryID), zap.Error(markErr))
		return
	}

	outcome := "retry"
	if entry.AttemptCount+1 >= f.cfg.MaxAttempts {
		outcome = "dead"
	}
	if f.metrics != nil {
		f.metrics.RecordOutboxDelivery(string(f.cfg.Kind), outcome)
	}
	f.logger.Warn("outbox delivery failed", zap.String("entry_id", entry.EntryID), zap.String("outcome", outcome), zap.Error(err))
}

func errString(err error) string {
	if svcErr := apierrors.As(err); svcErr != nil {
		return svcErr.Error()
	}
	return err.Error()
}
