package consumer

import (
	"context"
	"encoding/json"

	"github.com/OlegKumachev/kiout-test-backend/internal/bootstrap"
	"github.com/OlegKumachev/kiout-test-backend/internal/events"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafkago.Reader used by the consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ConsumeWorkerLifecycle writes every worker lifecycle event to the audit log
// until ctx is cancelled. Undecodable messages are committed and skipped.
func ConsumeWorkerLifecycle(
	ctx context.Context,
	reader MessageReader,
	audit bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.worker_lifecycle")
	log.Info("worker lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker lifecycle consumer stopped")
				return
			}
			log.Error("fetch worker lifecycle message failed", zap.Error(err))
			continue
		}

		entry, err := auditEntry(msg.Value)
		if err != nil {
			log.Error("decode worker lifecycle event failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		audit.Log(withEventMetadata(ctx, msg.Value), entry)

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit worker lifecycle message failed", zap.Error(err))
			continue
		}
	}
}

func auditEntry(value []byte) (bootstrap.AuditLog, error) {
	var head struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return bootstrap.AuditLog{}, err
	}

	if head.EventType == events.WorkersImported {
		var e events.WorkersImportedEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return bootstrap.AuditLog{}, err
		}
		return bootstrap.AuditLog{
			Action:  e.EventType,
			Message: "Workers imported from " + e.Filename,
			Meta: map[string]any{
				"batch_id": e.BatchID,
				"imported": e.Imported,
				"updated":  e.Updated,
				"errors":   e.Errors,
				"total":    e.Total,
			},
		}, nil
	}

	var e events.WorkerEvent
	if err := json.Unmarshal(value, &e); err != nil {
		return bootstrap.AuditLog{}, err
	}
	return bootstrap.AuditLog{
		Action:  e.EventType,
		Message: "Worker " + e.Email,
		Meta: map[string]any{
			"worker_id": e.WorkerID,
			"email":     e.Email,
		},
	}, nil
}

func withEventMetadata(ctx context.Context, value []byte) context.Context {
	var meta struct {
		RequestID string `json:"request_id"`
		ActorID   string `json:"actor_id"`
	}
	if json.Unmarshal(value, &meta) != nil {
		return ctx
	}
	if meta.RequestID != "" {
		ctx = contextutil.WithRequestID(ctx, meta.RequestID)
	}
	if meta.ActorID != "" {
		ctx = contextutil.WithActorID(ctx, meta.ActorID)
	}
	return ctx
}
