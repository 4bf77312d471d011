package bootstrap

import (
	"context"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/shared/contextutil"

	"go.uber.org/zap"
)

type StdoutAuditLogger struct{}

func NewStdoutAuditLogger() *StdoutAuditLogger {
	return &StdoutAuditLogger{}
}

// Log writes the entry through the "audit" logger, tagged with the request
// metadata carried by ctx.
func (l *StdoutAuditLogger) Log(ctx context.Context, entry AuditLog) {
	fields := append(contextutil.ExtractMetadata(ctx).Fields(),
		zap.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		zap.String("action", entry.Action),
		zap.String("message", entry.Message),
		zap.Any("meta", entry.Meta),
	)
	zap.L().Named("audit").Info("audit event", fields...)
}
