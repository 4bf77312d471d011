package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/events"
	"github.com/OlegKumachev/kiout-test-backend/internal/messaging/kafka"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/contextutil"
	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ListCacheKey is a redis hash holding one cached list per filter.
const ListCacheKey = "workers:list"

const defaultListTTL = 10 * time.Minute

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Option func(*service)

func WithLogger(l *zap.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l.Named("worker.service")
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithListTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.listTTL = ttl
		}
	}
}

//go:generate mockgen -source=worker_service.go -destination=mock/worker_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateWorkerRequest, actorID *uuid.UUID) (WorkerDetailResponse, error)
	GetByID(ctx context.Context, id string) (WorkerDetailResponse, error)
	GetByEmail(ctx context.Context, email string) (WorkerDetailResponse, error)
	List(ctx context.Context, filter ListFilter) ([]WorkerDetailResponse, error)
	Update(ctx context.Context, id string, req UpdateWorkerRequest) (WorkerDetailResponse, error)
	UpdateByEmail(ctx context.Context, email string, req UpdateWorkerRequest) (WorkerDetailResponse, error)
	Delete(ctx context.Context, id string) error
	InvalidateList(ctx context.Context)
}

type service struct {
	db      *sql.DB
	repo    Repository
	outbox  kafka.OutboxRepository
	rdb     *redis.Client
	sf      *singleflight.Group
	clock   Clock
	listTTL time.Duration
	logger  *zap.Logger
}

// NewService wires the store. outbox and rdb are optional.
func NewService(
	db *sql.DB,
	repo Repository,
	outbox kafka.OutboxRepository,
	rdb *redis.Client,
	opts ...Option,
) Service {
	s := &service{
		db:      db,
		repo:    repo,
		outbox:  outbox,
		rdb:     rdb,
		sf:      &singleflight.Group{},
		clock:   systemClock{},
		listTTL: defaultListTTL,
		logger:  zap.L().Named("worker.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(
	ctx context.Context,
	req CreateWorkerRequest,
	actorID *uuid.UUID,
) (WorkerDetailResponse, error) {
	rid := contextutil.RequestID(ctx)
	s.logger.Debug("create worker requested",
		zap.String("request_id", rid),
		zap.String("email", req.Email),
	)

	now := s.clock.Now().UTC()
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	w := &Worker{
		ID:         uuid.New(),
		FirstName:  strings.TrimSpace(req.FirstName),
		MiddleName: strings.TrimSpace(req.MiddleName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      NormalizeEmail(req.Email),
		Position:   strings.TrimSpace(req.Position),
		IsActive:   isActive,
		HiredDate:  now,
		CreatedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := validateWorker(w); err != nil {
		s.logger.Warn("create worker validation failed", zap.String("request_id", rid), zap.Error(err))
		return WorkerDetailResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create worker begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return WorkerDetailResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Create(ctx, w); err != nil {
		mapped := mapRepositoryError(err)
		s.logger.Warn("create worker persist failed", zap.String("email", w.Email), zap.Error(mapped))
		return WorkerDetailResponse{}, mapped
	}

	if err := s.enqueueEvent(ctx, tx, events.WorkerCreated, w); err != nil {
		s.logger.Error("create worker outbox persist failed",
			zap.String("worker_id", w.ID.String()),
			zap.Error(err),
		)
		return WorkerDetailResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create worker commit failed", zap.String("request_id", rid), zap.Error(err))
		return WorkerDetailResponse{}, err
	}

	s.InvalidateList(ctx)

	s.logger.Info("create worker success",
		zap.String("request_id", rid),
		zap.String("worker_id", w.ID.String()),
	)
	return mapToDetailResponse(*w), nil
}

func (s *service) GetByID(ctx context.Context, id string) (WorkerDetailResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return WorkerDetailResponse{}, workererrors.ErrInvalidWorkerID
	}

	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Debug("get worker by id failed", zap.String("worker_id", id), zap.Error(err))
		return WorkerDetailResponse{}, mapRepositoryError(err)
	}
	return mapToDetailResponse(*w), nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (WorkerDetailResponse, error) {
	w, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return WorkerDetailResponse{}, mapRepositoryError(err)
	}
	return mapToDetailResponse(*w), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]WorkerDetailResponse, error) {
	field := filter.CacheField()

	if s.rdb != nil {
		if cached, err := s.rdb.HGet(ctx, ListCacheKey, field).Result(); err == nil {
			var resp []WorkerDetailResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(field, func() (interface{}, error) {
		workers, err := s.repo.FindAll(ctx, filter)
		if err != nil {
			return nil, mapRepositoryError(err)
		}

		resp := mapToDetailList(workers)

		if s.rdb != nil {
			if payload, err := json.Marshal(resp); err == nil {
				if err := s.rdb.HSet(ctx, ListCacheKey, field, string(payload)).Err(); err != nil {
					s.logger.Warn("cache worker list failed", zap.String("field", field), zap.Error(err))
				} else {
					s.rdb.Expire(ctx, ListCacheKey, s.listTTL)
				}
			}
		}

		return resp, nil
	})
	if err != nil {
		s.logger.Error("list workers failed", zap.Error(err))
		return nil, err
	}

	return v.([]WorkerDetailResponse), nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateWorkerRequest) (WorkerDetailResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return WorkerDetailResponse{}, workererrors.ErrInvalidWorkerID
	}
	s.logger.Debug("update worker requested", zap.String("worker_id", id))

	return s.update(ctx, req, func(repo Repository) (*Worker, error) {
		return repo.FindByID(ctx, id)
	})
}

func (s *service) UpdateByEmail(ctx context.Context, email string, req UpdateWorkerRequest) (WorkerDetailResponse, error) {
	email = NormalizeEmail(email)
	s.logger.Debug("update worker by email requested", zap.String("email", email))

	return s.update(ctx, req, func(repo Repository) (*Worker, error) {
		return repo.FindByEmail(ctx, email)
	})
}

// update applies the supplied fields of req to the worker returned by find.
// hired_date and created_by are never written.
func (s *service) update(
	ctx context.Context,
	req UpdateWorkerRequest,
	find func(Repository) (*Worker, error),
) (WorkerDetailResponse, error) {
	rid := contextutil.RequestID(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update worker begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return WorkerDetailResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	w, err := find(qtx)
	if err != nil {
		return WorkerDetailResponse{}, mapRepositoryError(err)
	}

	applyUpdate(w, req)
	w.UpdatedAt = s.clock.Now().UTC()

	if err := validateWorker(w); err != nil {
		s.logger.Warn("update worker validation failed", zap.String("worker_id", w.ID.String()), zap.Error(err))
		return WorkerDetailResponse{}, err
	}

	if err := qtx.Update(ctx, w); err != nil {
		mapped := mapRepositoryError(err)
		s.logger.Warn("update worker persist failed", zap.String("worker_id", w.ID.String()), zap.Error(mapped))
		return WorkerDetailResponse{}, mapped
	}

	if err := s.enqueueEvent(ctx, tx, events.WorkerUpdated, w); err != nil {
		s.logger.Error("update worker outbox persist failed", zap.String("worker_id", w.ID.String()), zap.Error(err))
		return WorkerDetailResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update worker commit failed", zap.String("request_id", rid), zap.Error(err))
		return WorkerDetailResponse{}, err
	}

	s.InvalidateList(ctx)

	s.logger.Info("update worker success", zap.String("worker_id", w.ID.String()))
	return mapToDetailResponse(*w), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return workererrors.ErrInvalidWorkerID
	}
	rid := contextutil.RequestID(ctx)
	s.logger.Debug("delete worker requested", zap.String("worker_id", id))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("delete worker begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	w, err := qtx.FindByID(ctx, id)
	if err != nil {
		return mapRepositoryError(err)
	}

	if err := qtx.Delete(ctx, id); err != nil {
		s.logger.Error("delete worker failed", zap.String("worker_id", id), zap.Error(err))
		return mapRepositoryError(err)
	}

	if err := s.enqueueEvent(ctx, tx, events.WorkerDeleted, w); err != nil {
		s.logger.Error("delete worker outbox persist failed", zap.String("worker_id", id), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("delete worker commit failed", zap.String("request_id", rid), zap.Error(err))
		return err
	}

	s.InvalidateList(ctx)

	s.logger.Info("delete worker success", zap.String("worker_id", id))
	return nil
}

// InvalidateList drops every cached list. Failures are logged only; the
// cache expires on its own.
func (s *service) InvalidateList(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, ListCacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate worker list cache",
			zap.Error(err),
			zap.String("key", ListCacheKey),
		)
	}
}

func (s *service) enqueueEvent(ctx context.Context, tx *sql.Tx, eventType string, w *Worker) error {
	if s.outbox == nil {
		return nil
	}

	meta := contextutil.ExtractMetadata(ctx)
	payload, err := json.Marshal(events.WorkerEvent{
		EventType:  eventType,
		RequestID:  meta.RequestID,
		WorkerID:   w.ID.String(),
		Email:      w.Email,
		ActorID:    meta.ActorID,
		OccurredAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.NewWorkerEvent(
		meta.RequestID,
		w.ID.String(),
		eventType,
		events.WorkerLifecycleTopic,
		payload,
	))
}

func applyUpdate(w *Worker, req UpdateWorkerRequest) {
	if req.FirstName != nil {
		w.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.MiddleName != nil {
		w.MiddleName = strings.TrimSpace(*req.MiddleName)
	}
	if req.LastName != nil {
		w.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		w.Email = NormalizeEmail(*req.Email)
	}
	if req.Position != nil {
		w.Position = strings.TrimSpace(*req.Position)
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
}

func mapToDetailResponse(w Worker) WorkerDetailResponse {
	resp := WorkerDetailResponse{
		ID:         w.ID.String(),
		FirstName:  w.FirstName,
		MiddleName: w.MiddleName,
		LastName:   w.LastName,
		Email:      w.Email,
		Position:   w.Position,
		IsActive:   w.IsActive,
		HiredDate:  w.HiredDate,
	}
	if w.CreatedBy != nil {
		createdBy := w.CreatedBy.String()
		resp.CreatedBy = &createdBy
	}
	return resp
}

func mapToDetailList(workers []Worker) []WorkerDetailResponse {
	res := make([]WorkerDetailResponse, len(workers))
	for i, w := range workers {
		res[i] = mapToDetailResponse(w)
	}
	return res
}
