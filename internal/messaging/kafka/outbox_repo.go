package kafka

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
	// OutboxStatusDead events ran out of attempts and are no longer relayed.
	OutboxStatusDead = "dead"
)

const (
	AggregateWorker      = "worker"
	AggregateImportBatch = "worker_import"
)

const (
	MaxOutboxAttempts = 10
	firstRetryDelay   = 15 * time.Second
	maxRetryDelay     = 15 * time.Minute
	maxErrorLength    = 500
)

type OutboxEvent struct {
	ID            string
	RequestID     string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	Payload       []byte
	Status        string
	RetryCount    int
	NextRetryAt   time.Time
}

// NewWorkerEvent queues a lifecycle event keyed by the worker id, so every
// change to one worker lands on the same partition.
func NewWorkerEvent(requestID, workerID, eventType, topic string, payload []byte) OutboxEvent {
	return newOutboxEvent(requestID, AggregateWorker, workerID, eventType, topic, payload)
}

// NewImportEvent queues the summary of one spreadsheet import.
func NewImportEvent(requestID, batchID, eventType, topic string, payload []byte) OutboxEvent {
	return newOutboxEvent(requestID, AggregateImportBatch, batchID, eventType, topic, payload)
}

func newOutboxEvent(requestID, aggregateType, aggregateID, eventType, topic string, payload []byte) OutboxEvent {
	return OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     requestID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Topic:         topic,
		Payload:       payload,
		Status:        OutboxStatusPending,
	}
}

// RetryDelay doubles from 15s per failed attempt and caps at 15 minutes.
func RetryDelay(failures int) time.Duration {
	d := firstRetryDelay
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}

// failureStatus is the status an event takes after its nth failed attempt.
func failureStatus(failures int) string {
	if failures >= MaxOutboxAttempts {
		return OutboxStatusDead
	}
	return OutboxStatusFailed
}

//go:generate mockgen -source=outbox_repo.go -destination=mock/outbox_repo_mock.go -package=mock

type OutboxRepository interface {
	WithTx(tx *sql.Tx) OutboxRepository
	Create(ctx context.Context, event OutboxEvent) error
	ListPending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id string) error
	// MarkFailed schedules the next attempt, or dead-letters the event once
	// it has failed MaxOutboxAttempts times. It returns the new status.
	MarkFailed(ctx context.Context, event OutboxEvent, reason string) (string, error)
}

type outboxRepository struct {
	db  *sql.DB
	tx  *sql.Tx
	now func() time.Time
}

func NewOutboxRepository(db *sql.DB) OutboxRepository {
	return &outboxRepository{db: db, now: time.Now}
}

func (r *outboxRepository) WithTx(tx *sql.Tx) OutboxRepository {
	return &outboxRepository{db: r.db, tx: tx, now: r.now}
}

func (r *outboxRepository) Create(ctx context.Context, event OutboxEvent) error {
	if err := ValidateOutboxEvent(event); err != nil {
		return err
	}

	query := `
INSERT INTO outbox_events (
	id, request_id, aggregate_type, aggregate_id, event_type, topic, payload, status
) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
`
	_, err := r.execer().ExecContext(
		ctx, query,
		event.ID, event.RequestID, event.AggregateType,
		event.AggregateID, event.EventType, event.Topic, event.Payload, event.Status,
	)
	return err
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]OutboxEvent, error) {
	query := `
SELECT
	id::text,
	COALESCE(request_id, ''),
	aggregate_type,
	aggregate_id,
	event_type,
	topic,
	payload,
	status,
	retry_count,
	COALESCE(next_retry_at, created_at)
FROM outbox_events
WHERE status IN ($1, $2)
	AND (next_retry_at IS NULL OR next_retry_at <= $3)
ORDER BY created_at ASC
LIMIT $4
`
	rows, err := r.db.QueryContext(ctx, query, OutboxStatusPending, OutboxStatusFailed, r.now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]OutboxEvent, 0, limit)
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(
			&e.ID,
			&e.RequestID,
			&e.AggregateType,
			&e.AggregateID,
			&e.EventType,
			&e.Topic,
			&e.Payload,
			&e.Status,
			&e.RetryCount,
			&e.NextRetryAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	query := `
UPDATE outbox_events
SET status = $2, processed_at = NOW(), error_message = NULL, updated_at = NOW()
WHERE id = $1
`
	_, err := r.db.ExecContext(ctx, query, id, OutboxStatusSent)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, event OutboxEvent, reason string) (string, error) {
	failures := event.RetryCount + 1
	status := failureStatus(failures)

	var nextRetry any
	if status == OutboxStatusFailed {
		nextRetry = r.now().UTC().Add(RetryDelay(failures))
	}

	query := `
UPDATE outbox_events
SET status = $2, retry_count = $3, error_message = $4, next_retry_at = $5, updated_at = NOW()
WHERE id = $1
`
	if _, err := r.db.ExecContext(ctx, query, event.ID, status, failures, truncate(reason, maxErrorLength), nextRetry); err != nil {
		return "", err
	}
	return status, nil
}

func (r *outboxRepository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func ValidateOutboxEvent(event OutboxEvent) error {
	if event.ID == "" {
		return errors.New("outbox id is required")
	}
	if event.AggregateID == "" {
		return errors.New("outbox aggregate id is required")
	}
	if event.Topic == "" {
		return errors.New("outbox topic is required")
	}
	if len(event.Payload) == 0 {
		return errors.New("outbox payload is required")
	}
	switch event.AggregateType {
	case AggregateWorker, AggregateImportBatch:
	default:
		return fmt.Errorf("unknown outbox aggregate: %s", event.AggregateType)
	}
	if event.Status != OutboxStatusPending {
		return fmt.Errorf("new outbox event must be %s, got %s", OutboxStatusPending, event.Status)
	}
	return nil
}
