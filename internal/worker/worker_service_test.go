package worker_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/events"
	"github.com/OlegKumachev/kiout-test-backend/internal/messaging/kafka"
	kafkaMock "github.com/OlegKumachev/kiout-test-backend/internal/messaging/kafka/mock"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/contextutil"
	"github.com/OlegKumachev/kiout-test-backend/internal/worker"
	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"
	workerMock "github.com/OlegKumachev/kiout-test-backend/internal/worker/mock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

var hiredAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type serviceDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   worker.Service
	repo      *workerMock.MockRepository
	outbox    *kafkaMock.MockOutboxRepository
	redismock redismock.ClientMock
}

func setupServiceTest(t *testing.T) *serviceDeps {
	ctrl := gomock.NewController(t)

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, redisMock := redismock.NewClientMock()
	repo := workerMock.NewMockRepository(ctrl)
	outboxRepo := kafkaMock.NewMockOutboxRepository(ctrl)

	svc := worker.NewService(db, repo, outboxRepo, rdb,
		worker.WithClock(fixedClock{t: hiredAt}),
		worker.WithListTTL(5*time.Minute),
	)

	return &serviceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		outbox:    outboxRepo,
		redismock: redisMock,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

type outboxEventMatcher struct {
	eventType string
	requestID string
}

func (m outboxEventMatcher) Matches(x any) bool {
	event, ok := x.(kafka.OutboxEvent)
	if !ok {
		return false
	}
	if event.Topic != events.WorkerLifecycleTopic || event.EventType != m.eventType {
		return false
	}
	if event.RequestID != m.requestID {
		return false
	}

	var payload events.WorkerEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return false
	}
	return payload.EventType == m.eventType && payload.RequestID == m.requestID
}

func (m outboxEventMatcher) String() string {
	return "matches " + m.eventType + " outbox event with request_id " + m.requestID
}

func MatchWorkerEvent(eventType, rid string) gomock.Matcher {
	return outboxEventMatcher{eventType: eventType, requestID: rid}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestWorkerService_Create(t *testing.T) {
	t.Run("success - normalizes email and stamps hired date and creator", func(t *testing.T) {
		deps := setupServiceTest(t)
		rid := "REQ-1"
		ctx := contextutil.WithRequestID(context.Background(), rid)
		actor := uuid.New()

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, w *worker.Worker) error {
				assert.Equal(t, "john@test.com", w.Email)
				assert.Equal(t, "John", w.FirstName)
				assert.True(t, w.IsActive)
				assert.Equal(t, hiredAt, w.HiredDate)
				require.NotNil(t, w.CreatedBy)
				assert.Equal(t, actor, *w.CreatedBy)
				return nil
			})
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(gomock.Any(), MatchWorkerEvent(events.WorkerCreated, rid)).Return(nil)
		deps.redismock.ExpectDel(worker.ListCacheKey).SetVal(1)

		resp, err := deps.service.Create(ctx, worker.CreateWorkerRequest{
			FirstName: " John ",
			LastName:  "Smith",
			Email:     "  John@Test.com ",
			Position:  "Developer",
		}, &actor)

		require.NoError(t, err)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "john@test.com", resp.Email)
		assert.Equal(t, hiredAt, resp.HiredDate)
		require.NotNil(t, resp.CreatedBy)
		assert.Equal(t, actor.String(), *resp.CreatedBy)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("explicit inactive without actor", func(t *testing.T) {
		deps := setupServiceTest(t)
		ctx := context.Background()

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		deps.redismock.ExpectDel(worker.ListCacheKey).SetVal(1)

		resp, err := deps.service.Create(ctx, worker.CreateWorkerRequest{
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "jane@test.com",
			IsActive:  boolPtr(false),
		}, nil)

		require.NoError(t, err)
		assert.False(t, resp.IsActive)
		assert.Nil(t, resp.CreatedBy)
	})

	t.Run("validation error never opens a transaction", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Create(context.Background(), worker.CreateWorkerRequest{
			FirstName: " ",
			Email:     "not-an-email",
		}, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, workererrors.ErrValidation)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		details, ok := appErr.Details.(map[string]string)
		require.True(t, ok)
		assert.Contains(t, details, "first_name")
		assert.Contains(t, details, "email")
		assert.NotContains(t, details, "last_name")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("too long position", func(t *testing.T) {
		deps := setupServiceTest(t)

		long := make([]byte, 101)
		for i := range long {
			long[i] = 'x'
		}
		_, err := deps.service.Create(context.Background(), worker.CreateWorkerRequest{
			FirstName: "John",
			LastName:  "Smith",
			Email:     "john@test.com",
			Position:  string(long),
		}, nil)

		assert.ErrorIs(t, err, workererrors.ErrValidation)
		assert.Contains(t, worker.ValidationMessages(err), "Position must be at most 100 characters")
	})

	t.Run("duplicate email -> conflict and rollback", func(t *testing.T) {
		deps := setupServiceTest(t)
		ctx := context.Background()

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().
			Create(ctx, gomock.Any()).
			Return(&pgconn.PgError{Code: "23505", ConstraintName: "uq_workers_email"})

		_, err := deps.service.Create(ctx, worker.CreateWorkerRequest{
			FirstName: "John",
			LastName:  "Smith",
			Email:     "john@test.com",
		}, nil)

		assert.ErrorIs(t, err, workererrors.ErrWorkerAlreadyExists)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("outbox failure rolls back", func(t *testing.T) {
		deps := setupServiceTest(t)
		ctx := context.Background()

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("outbox down"))

		_, err := deps.service.Create(ctx, worker.CreateWorkerRequest{
			FirstName: "John",
			LastName:  "Smith",
			Email:     "john@test.com",
		}, nil)

		assert.EqualError(t, err, "outbox down")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestWorkerService_GetByID(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		deps.repo.EXPECT().
			FindByID(ctx, id.String()).
			Return(&worker.Worker{ID: id, FirstName: "John", Email: "john@test.com", HiredDate: hiredAt}, nil)

		resp, err := deps.service.GetByID(ctx, id.String())

		assert.NoError(t, err)
		assert.Equal(t, id.String(), resp.ID)
		assert.Equal(t, hiredAt, resp.HiredDate)
	})

	t.Run("not found", func(t *testing.T) {
		deps.repo.EXPECT().FindByID(ctx, id.String()).Return(nil, gorm.ErrRecordNotFound)

		_, err := deps.service.GetByID(ctx, id.String())

		assert.ErrorIs(t, err, workererrors.ErrWorkerNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := deps.service.GetByID(ctx, "42")

		assert.ErrorIs(t, err, workererrors.ErrInvalidWorkerID)
	})
}

func TestWorkerService_GetByEmail(t *testing.T) {
	deps := setupServiceTest(t)
	ctx := context.Background()

	deps.repo.EXPECT().FindByEmail(ctx, "a@test.com").Return(nil, gorm.ErrRecordNotFound)

	_, err := deps.service.GetByEmail(ctx, " A@test.com")

	assert.ErrorIs(t, err, workererrors.ErrWorkerNotFound)
}

func TestWorkerService_List(t *testing.T) {
	ctx := context.Background()
	filter := worker.ListFilter{IsActive: boolPtr(true)}

	t.Run("cache hit skips the repository", func(t *testing.T) {
		deps := setupServiceTest(t)
		cached := []worker.WorkerDetailResponse{{ID: uuid.NewString(), FirstName: "Cached"}}
		payload, _ := json.Marshal(cached)

		deps.redismock.ExpectHGet(worker.ListCacheKey, filter.CacheField()).SetVal(string(payload))
		deps.repo.EXPECT().FindAll(gomock.Any(), gomock.Any()).Times(0)

		resp, err := deps.service.List(ctx, filter)

		require.NoError(t, err)
		require.Len(t, resp, 1)
		assert.Equal(t, "Cached", resp[0].FirstName)
	})

	t.Run("cache miss loads and stores", func(t *testing.T) {
		deps := setupServiceTest(t)
		field := filter.CacheField()

		deps.redismock.ExpectHGet(worker.ListCacheKey, field).RedisNil()
		deps.repo.EXPECT().
			FindAll(gomock.Any(), filter).
			Return([]worker.Worker{{ID: uuid.New(), FirstName: "Ann", IsActive: true}}, nil)
		deps.redismock.Regexp().
			ExpectHSet(regexp.QuoteMeta(worker.ListCacheKey), regexp.QuoteMeta(field), `.+`).
			SetVal(1)
		deps.redismock.ExpectExpire(worker.ListCacheKey, 5*time.Minute).SetVal(true)

		resp, err := deps.service.List(ctx, filter)

		require.NoError(t, err)
		require.Len(t, resp, 1)
		assert.Equal(t, "Ann", resp[0].FirstName)
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("repository error", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.redismock.ExpectHGet(worker.ListCacheKey, filter.CacheField()).RedisNil()
		deps.repo.EXPECT().FindAll(gomock.Any(), filter).Return(nil, errors.New("database connection lost"))

		resp, err := deps.service.List(ctx, filter)

		assert.Error(t, err)
		assert.Nil(t, resp)
		assert.Contains(t, err.Error(), "database connection lost")
	})
}

func TestWorkerService_Update(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	creator := uuid.New()

	existing := func() *worker.Worker {
		return &worker.Worker{
			ID:        id,
			FirstName: "John",
			LastName:  "Smith",
			Email:     "john@test.com",
			Position:  "Developer",
			IsActive:  true,
			HiredDate: hiredAt.Add(-48 * time.Hour),
			CreatedBy: &creator,
		}
	}

	t.Run("partial update keeps hired date and creator", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, id.String()).Return(existing(), nil)
		deps.repo.EXPECT().
			Update(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, w *worker.Worker) error {
				assert.Equal(t, "Lead", w.Position)
				assert.Equal(t, "John", w.FirstName)
				assert.Equal(t, hiredAt.Add(-48*time.Hour), w.HiredDate)
				assert.Equal(t, &creator, w.CreatedBy)
				return nil
			})
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(gomock.Any(), MatchWorkerEvent(events.WorkerUpdated, "")).Return(nil)
		deps.redismock.ExpectDel(worker.ListCacheKey).SetVal(1)

		resp, err := deps.service.Update(ctx, id.String(), worker.UpdateWorkerRequest{Position: strPtr("Lead")})

		require.NoError(t, err)
		assert.Equal(t, "Lead", resp.Position)
		assert.Equal(t, creator.String(), *resp.CreatedBy)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("clearing a required name is a validation error", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, id.String()).Return(existing(), nil)

		_, err := deps.service.Update(ctx, id.String(), worker.UpdateWorkerRequest{FirstName: strPtr("  ")})

		assert.ErrorIs(t, err, workererrors.ErrValidation)
	})

	t.Run("email taken by another worker", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, id.String()).Return(existing(), nil)
		deps.repo.EXPECT().
			Update(ctx, gomock.Any()).
			Return(errors.New(`ERROR: duplicate key value violates unique constraint "uq_workers_email" (SQLSTATE 23505)`))

		_, err := deps.service.Update(ctx, id.String(), worker.UpdateWorkerRequest{Email: strPtr("jane@test.com")})

		assert.ErrorIs(t, err, workererrors.ErrWorkerAlreadyExists)
	})

	t.Run("update by email not found", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByEmail(ctx, "ghost@test.com").Return(nil, gorm.ErrRecordNotFound)

		_, err := deps.service.UpdateByEmail(ctx, "Ghost@test.com", worker.UpdateWorkerRequest{Position: strPtr("X")})

		assert.ErrorIs(t, err, workererrors.ErrWorkerNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestWorkerService_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, id.String()).Return(&worker.Worker{ID: id, Email: "john@test.com"}, nil)
		deps.repo.EXPECT().Delete(ctx, id.String()).Return(nil)
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(gomock.Any(), MatchWorkerEvent(events.WorkerDeleted, "")).Return(nil)
		deps.redismock.ExpectDel(worker.ListCacheKey).SetVal(1)

		err := deps.service.Delete(ctx, id.String())

		assert.NoError(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, id.String()).Return(nil, gorm.ErrRecordNotFound)

		err := deps.service.Delete(ctx, id.String())

		assert.ErrorIs(t, err, workererrors.ErrWorkerNotFound)
	})
}
