package workerimport

import (
	"context"
	"errors"
	"strings"

	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/contextutil"
	"github.com/OlegKumachev/kiout-test-backend/internal/worker"
	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkerStore is the part of worker.Service the pipeline writes through.
// GetByEmail reports absence as workererrors.ErrWorkerNotFound.
type WorkerStore interface {
	GetByEmail(ctx context.Context, email string) (worker.WorkerDetailResponse, error)
	Create(ctx context.Context, req worker.CreateWorkerRequest, actorID *uuid.UUID) (worker.WorkerDetailResponse, error)
	UpdateByEmail(ctx context.Context, email string, req worker.UpdateWorkerRequest) (worker.WorkerDetailResponse, error)
}

// CreatorResolver supplies a fallback creator when an import has no acting
// user. user.Service satisfies it.
type CreatorResolver interface {
	FirstUserID(ctx context.Context) (*uuid.UUID, error)
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeCreated
	outcomeUpdated
)

type Pipeline struct {
	store    WorkerStore
	fallback CreatorResolver
	logger   *zap.Logger
}

type PipelineOption func(*Pipeline)

// WithFallbackCreator attributes creations to the oldest user when the
// caller is anonymous. Without it createdBy stays empty.
func WithFallbackCreator(r CreatorResolver) PipelineOption {
	return func(p *Pipeline) {
		p.fallback = r
	}
}

func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l.Named("workerimport.pipeline")
		}
	}
}

func NewPipeline(store WorkerStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:  store,
		logger: zap.L().Named("workerimport.pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run applies rows in order, numbering failures by position.
func (p *Pipeline) Run(ctx context.Context, rows []RawRow, actor *uuid.UUID) (ImportReport, error) {
	return p.RunBatch(ctx, Batch{Rows: rows}, actor)
}

// RunBatch applies a decoded batch in order. Row failures are collected in
// the report under their source row numbers; the returned error is non-nil
// only when ctx ends, in which case the report covers the rows processed so
// far.
func (p *Pipeline) RunBatch(ctx context.Context, batch Batch, actor *uuid.UUID) (ImportReport, error) {
	rows := batch.Rows
	l := contextutil.Logger(ctx, p.logger)
	report := ImportReport{Failures: []RowFailure{}}

	creator, err := p.resolveCreator(ctx, actor)
	if err != nil {
		return report, err
	}

	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			l.Warn("import cancelled", zap.Int("processed", report.Total), zap.Int("rows", len(rows)))
			return report, err
		}

		rowNum := batch.rowNumber(i)
		res, email, err := p.applyRow(ctx, raw, creator)
		report.Total++

		switch res {
		case outcomeCreated:
			report.Imported++
		case outcomeUpdated:
			report.Updated++
		default:
			report.Errors++
			report.Failures = append(report.Failures, RowFailure{
				Row:    rowNum,
				Email:  email,
				Reason: failureReason(err),
			})
			l.Warn("import row rejected", zap.Int("row", rowNum), zap.String("email", email), zap.Error(err))
		}
	}

	return report, nil
}

func (p *Pipeline) resolveCreator(ctx context.Context, actor *uuid.UUID) (*uuid.UUID, error) {
	if actor != nil || p.fallback == nil {
		return actor, nil
	}
	return p.fallback.FirstUserID(ctx)
}

func (p *Pipeline) applyRow(ctx context.Context, raw RawRow, creator *uuid.UUID) (outcome, string, error) {
	l := contextutil.Logger(ctx, p.logger)

	row, err := ParseRow(raw)
	email := row.Email
	if email == "" {
		email = strings.TrimSpace(raw[ColumnEmail])
	}

	firstName := ""
	if row.FirstName != nil {
		firstName = *row.FirstName
	}
	l.Info("importing worker", zap.String("first_name", firstName), zap.String("email", email))

	if err != nil {
		return outcomeFailed, email, err
	}

	_, err = p.store.GetByEmail(ctx, row.Email)
	switch {
	case err == nil:
		if _, err := p.store.UpdateByEmail(ctx, row.Email, row.updateRequest()); err != nil {
			return outcomeFailed, email, err
		}
		return outcomeUpdated, email, nil
	case errors.Is(err, workererrors.ErrWorkerNotFound):
		if _, err := p.store.Create(ctx, row.createRequest(), creator); err != nil {
			return outcomeFailed, email, err
		}
		return outcomeCreated, email, nil
	default:
		return outcomeFailed, email, err
	}
}

func failureReason(err error) string {
	if msgs := worker.ValidationMessages(err); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "import interrupted"
	}
	return "internal error"
}
