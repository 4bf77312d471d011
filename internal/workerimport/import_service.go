package workerimport

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/bootstrap"
	"github.com/OlegKumachev/kiout-test-backend/internal/events"
	"github.com/OlegKumachev/kiout-test-backend/internal/messaging/kafka"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/contextutil"
	"github.com/OlegKumachev/kiout-test-backend/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const auditActionImport = "WORKERS_IMPORTED"

//go:generate mockgen -source=import_service.go -destination=mock/import_service_mock.go -package=mock
type Service interface {
	ImportFile(ctx context.Context, filename string, content []byte, actor *uuid.UUID) (ImportReport, error)
	Export(ctx context.Context, filter worker.ListFilter, format string) (ExportFile, error)
}

type Option func(*service)

func WithLogger(l *zap.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l.Named("workerimport.service")
		}
	}
}

func WithClock(c worker.Clock) Option {
	return func(s *service) {
		if c != nil {
			s.clock = c
		}
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type service struct {
	db       *sql.DB
	pipeline *Pipeline
	workers  worker.Service
	outbox   kafka.OutboxRepository
	audit    bootstrap.AuditLogger
	clock    worker.Clock
	logger   *zap.Logger
}

// NewService wires import and export. db and outbox may be nil, in which
// case no workers.imported event is recorded.
func NewService(
	db *sql.DB,
	pipeline *Pipeline,
	workers worker.Service,
	outbox kafka.OutboxRepository,
	audit bootstrap.AuditLogger,
	opts ...Option,
) Service {
	s := &service{
		db:       db,
		pipeline: pipeline,
		workers:  workers,
		outbox:   outbox,
		audit:    audit,
		clock:    systemClock{},
		logger:   zap.L().Named("workerimport.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ImportFile(ctx context.Context, filename string, content []byte, actor *uuid.UUID) (ImportReport, error) {
	l := contextutil.Logger(ctx, s.logger)

	batch, err := Decode(filename, content)
	if err != nil {
		l.Warn("import file rejected", zap.String("filename", filename), zap.Error(err))
		return ImportReport{}, err
	}

	batchID := uuid.NewString()
	ctx = contextutil.WithImportBatch(ctx, batchID)
	l = l.With(zap.String("batch_id", batchID))
	ctx = contextutil.WithLogger(ctx, l)

	l.Info("import started",
		zap.String("filename", filename),
		zap.Int("rows", len(batch.Rows)),
	)

	report, runErr := s.pipeline.RunBatch(ctx, batch, actor)

	if report.Imported+report.Updated > 0 {
		s.workers.InvalidateList(ctx)
	}

	// Recorded even when the run was cut short.
	bgCtx := context.WithoutCancel(ctx)
	if err := s.recordImported(bgCtx, batchID, filename, actor, report); err != nil {
		l.Error("failed to record import event", zap.Error(err))
	}

	if s.audit != nil {
		s.audit.Log(bgCtx, bootstrap.AuditLog{
			Action:  auditActionImport,
			Message: "Workers imported from " + filename,
			Meta: map[string]any{
				"batch_id": batchID,
				"filename": filename,
				"imported": report.Imported,
				"updated":  report.Updated,
				"errors":   report.Errors,
				"total":    report.Total,
			},
		})
	}

	l.Info("import finished",
		zap.String("batch_id", batchID),
		zap.Int("imported", report.Imported),
		zap.Int("updated", report.Updated),
		zap.Int("errors", report.Errors),
		zap.Int("total", report.Total),
	)

	return report, runErr
}

func (s *service) recordImported(ctx context.Context, batchID, filename string, actor *uuid.UUID, report ImportReport) error {
	if s.db == nil || s.outbox == nil || report.Total == 0 {
		return nil
	}

	meta := contextutil.ExtractMetadata(ctx)
	actorID := meta.ActorID
	if actor != nil {
		actorID = actor.String()
	}

	payload, err := json.Marshal(events.WorkersImportedEvent{
		EventType:  events.WorkersImported,
		RequestID:  meta.RequestID,
		BatchID:    batchID,
		Filename:   filename,
		ActorID:    actorID,
		Imported:   report.Imported,
		Updated:    report.Updated,
		Errors:     report.Errors,
		Total:      report.Total,
		OccurredAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.outbox.WithTx(tx).Create(ctx, kafka.NewImportEvent(
		meta.RequestID,
		batchID,
		events.WorkersImported,
		events.WorkerLifecycleTopic,
		payload,
	)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *service) Export(ctx context.Context, filter worker.ListFilter, format string) (ExportFile, error) {
	format, err := exportFormat(format)
	if err != nil {
		return ExportFile{}, err
	}

	items, err := s.workers.List(ctx, filter)
	if err != nil {
		return ExportFile{}, err
	}

	content, err := encode(format, items)
	if err != nil {
		contextutil.Logger(ctx, s.logger).Error("export encode failed", zap.String("format", format), zap.Error(err))
		return ExportFile{}, err
	}

	return ExportFile{
		Filename:    "workers-" + s.clock.Now().UTC().Format("20060102-150405") + "." + format,
		ContentType: contentTypes[format],
		Content:     content,
	}, nil
}
