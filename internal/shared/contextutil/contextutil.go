// Package contextutil carries request metadata (request id, acting user,
// import batch, logger) from the HTTP and Kafka edges down to services.
package contextutil

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorIDKey
	importBatchKey
	loggerKey
)

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithActorID records the authenticated user acting on workers. An empty id
// leaves ctx anonymous.
func WithActorID(ctx context.Context, actorID string) context.Context {
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorIDKey, actorID)
}

func ActorID(ctx context.Context) string {
	return stringValue(ctx, actorIDKey)
}

// WithImportBatch tags everything done on behalf of one spreadsheet upload.
func WithImportBatch(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, importBatchKey, batchID)
}

func ImportBatch(ctx context.Context) string {
	return stringValue(ctx, importBatchKey)
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request scoped logger, then fallback, then a nop logger.
// It never returns nil.
func Logger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

type Metadata struct {
	RequestID string
	ActorID   string
	BatchID   string
}

func ExtractMetadata(ctx context.Context) Metadata {
	return Metadata{
		RequestID: RequestID(ctx),
		ActorID:   ActorID(ctx),
		BatchID:   ImportBatch(ctx),
	}
}

// Fields renders the non-empty metadata as log fields.
func (m Metadata) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if m.RequestID != "" {
		fields = append(fields, zap.String("request_id", m.RequestID))
	}
	if m.ActorID != "" {
		fields = append(fields, zap.String("actor_id", m.ActorID))
	}
	if m.BatchID != "" {
		fields = append(fields, zap.String("batch_id", m.BatchID))
	}
	return fields
}
