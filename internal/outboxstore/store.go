// Package outboxstore is the durable, Postgres-backed outbox (spec §3
// Outbox Entry, §4.5 Outbox flusher): a sqlx-driven store with per-entry
// compare-and-set semantics (claim via state transition pending->inflight
// with a lease token), modeled on the teacher's indexer storage package but
// rebuilt on jmoiron/sqlx instead of raw database/sql.
package outboxstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
)

// Store is a sqlx-backed implementation of usage.Store plus the flusher's
// claim/ack/fail/dead operations.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres and configures the connection pool the way the
// teacher's indexer storage does.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("outboxstore: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("outboxstore: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open sqlx.DB, used by tests against go-sqlmock.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue inserts a new outbox entry. Idempotency is enforced at the
// database level: a conflicting idempotency_key is a silent no-op, matching
// spec §3 "idempotencyKey is unique across the entire outbox lifetime".
func (s *Store) Enqueue(ctx context.Context, entry domain.OutboxEntry) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	const query = `
		INSERT INTO outbox_entries
			(entry_id, kind, resource_id, payload, idempotency_key, attempt_count, next_attempt_at, state, created_at, updated_at)
		VALUES
			(:entry_id, :kind, :resource_id, :payload, :idempotency_key, 0, :next_attempt_at, :state, :created_at, :updated_at)
		ON CONFLICT (idempotency_key) DO NOTHING`

	entry.State = domain.OutboxPending
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	if entry.NextAttemptAt.IsZero() {
		entry.NextAttemptAt = entry.CreatedAt
	}

	_, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return apierrors.StoreUnavailable(err)
	}
	return nil
}

// ClaimBatch atomically claims up to limit pending, due entries for one
// kind, marking them inflight with a fresh lease token (spec §5 "claim via
// state transition pending -> inflight with a lease token"). Ordered oldest
// first per resource, per spec §5 ordering guarantees.
func (s *Store) ClaimBatch(ctx context.Context, kind domain.OutboxKind, limit int) ([]domain.OutboxEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apierrors.StoreUnavailable(err)
	}
	defer tx.Rollback()

	const selectQuery = `
		SELECT entry_id, kind, resource_id, payload, idempotency_key, attempt_count,
		       next_attempt_at, state, lease_token, created_at, updated_at,
		       dead_letter_reason, last_error
		FROM outbox_entries
		WHERE kind = $1 AND state = $2 AND next_attempt_at <= $3
		ORDER BY resource_id, created_at ASC
		LIMIT $4
		FOR UPDATE SKIP LOCKED`

	var rows []outboxRow
	if err := tx.SelectContext(ctx, &rows, selectQuery, kind, domain.OutboxPending, time.Now(), limit); err != nil {
		return nil, apierrors.StoreUnavailable(err)
	}

	entries := make([]domain.OutboxEntry, 0, len(rows))
	for _, row := range rows {
		lease := uuid.NewString()
		const updateQuery = `UPDATE outbox_entries SET state = $1, lease_token = $2, updated_at = $3 WHERE entry_id = $4`
		if _, err := tx.ExecContext(ctx, updateQuery, domain.OutboxInflight, lease, time.Now(), row.EntryID); err != nil {
			return nil, apierrors.StoreUnavailable(err)
		}
		entry := row.toDomain()
		entry.State = domain.OutboxInflight
		entry.LeaseToken = lease
		entries = append(entries, entry)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierrors.StoreUnavailable(err)
	}
	return entries, nil
}

// MarkAcked terminally marks an entry delivered (spec §3 "acked is terminal
// for success").
func (s *Store) MarkAcked(ctx context.Context, entryID, leaseToken string) error {
	const query = `UPDATE outbox_entries SET state = $1, updated_at = $2 WHERE entry_id = $3 AND lease_token = $4`
	res, err := s.db.ExecContext(ctx, query, domain.OutboxAcked, time.Now(), entryID, leaseToken)
	return checkLeaseResult(res, err)
}

// MarkFailed returns an entry to pending with a backoff delay and records
// the failure, or moves it to dead if maxAttempts is exhausted (spec §4.5
// flusher failure handling).
func (s *Store) MarkFailed(ctx context.Context, entryID, leaseToken string, nextAttemptAt time.Time, maxAttempts int, lastErr string) error {
	const selectQuery = `SELECT attempt_count FROM outbox_entries WHERE entry_id = $1 AND lease_token = $2`
	var attempts int
	if err := s.db.GetContext(ctx, &attempts, selectQuery, entryID, leaseToken); err != nil {
		if err == sql.ErrNoRows {
			return apierrors.Conflict("entry lease expired or unknown")
		}
		return apierrors.StoreUnavailable(err)
	}
	attempts++

	if attempts >= maxAttempts {
		const deadQuery = `UPDATE outbox_entries SET state = $1, attempt_count = $2, dead_letter_reason = $3, last_error = $4, updated_at = $5 WHERE entry_id = $6 AND lease_token = $7`
		res, err := s.db.ExecContext(ctx, deadQuery, domain.OutboxDead, attempts, "max attempts exhausted", lastErr, time.Now(), entryID, leaseToken)
		return checkLeaseResult(res, err)
	}

	const retryQuery = `UPDATE outbox_entries SET state = $1, attempt_count = $2, next_attempt_at = $3, last_error = $4, updated_at = $5 WHERE entry_id = $6 AND lease_token = $7`
	res, err := s.db.ExecContext(ctx, retryQuery, domain.OutboxPending, attempts, nextAttemptAt, lastErr, time.Now(), entryID, leaseToken)
	return checkLeaseResult(res, err)
}

// ReleaseInflight drains inflight entries back to pending, used on
// shutdown so the flusher's in-progress batch is retried on restart (spec
// §5 "drains inflight entries back to pending entries on shutdown").
func (s *Store) ReleaseInflight(ctx context.Context) error {
	const query = `UPDATE outbox_entries SET state = $1, updated_at = $2 WHERE state = $3`
	_, err := s.db.ExecContext(ctx, query, domain.OutboxPending, time.Now(), domain.OutboxInflight)
	if err != nil {
		return apierrors.StoreUnavailable(err)
	}
	return nil
}

// PurgeAcked deletes acked entries older than retention (spec §6 "acked
// entries may be purged after 24h"; dead entries are never purged here).
func (s *Store) PurgeAcked(ctx context.Context, olderThan time.Duration) (int64, error) {
	const query = `DELETE FROM outbox_entries WHERE state = $1 AND updated_at < $2`
	res, err := s.db.ExecContext(ctx, query, domain.OutboxAcked, time.Now().Add(-olderThan))
	if err != nil {
		return 0, apierrors.StoreUnavailable(err)
	}
	return res.RowsAffected()
}

func checkLeaseResult(res sql.Result, err error) error {
	if err != nil {
		return apierrors.StoreUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apierrors.StoreUnavailable(err)
	}
	if affected == 0 {
		return apierrors.Conflict("entry lease expired or already resolved")
	}
	return nil
}

type outboxRow struct {
	EntryID          string         `db:"entry_id"`
	Kind             string         `db:"kind"`
	ResourceID       string         `db:"resource_id"`
	Payload          []byte         `db:"payload"`
	IdempotencyKey   string         `db:"idempotency_key"`
	AttemptCount     int            `db:"attempt_count"`
	NextAttemptAt    time.Time      `db:"next_attempt_at"`
	State            string         `db:"state"`
	LeaseToken       sql.NullString `db:"lease_token"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	DeadLetterReason sql.NullString `db:"dead_letter_reason"`
	LastError        sql.NullString `db:"last_error"`
}

func (r outboxRow) toDomain() domain.OutboxEntry {
	return domain.OutboxEntry{
		EntryID:          r.EntryID,
		Kind:             domain.OutboxKind(r.Kind),
		ResourceID:       r.ResourceID,
		Payload:          r.Payload,
		IdempotencyKey:   r.IdempotencyKey,
		AttemptCount:     r.AttemptCount,
		NextAttemptAt:    r.NextAttemptAt,
		State:            domain.OutboxState(r.State),
		LeaseToken:       r.LeaseToken.String,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		DeadLetterReason: r.DeadLetterReason.String,
		LastError:        r.LastError.String,
	}
}
