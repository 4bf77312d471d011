package workerimport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/worker"
	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"
	"github.com/OlegKumachev/kiout-test-backend/internal/worker/workertest"
	"github.com/OlegKumachev/kiout-test-backend/internal/workerimport"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hiredAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type steppingClock struct{ t time.Time }

func (c *steppingClock) Now() time.Time { return c.t }

func (c *steppingClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func scenarioBatch() []workerimport.RawRow {
	return []workerimport.RawRow{
		{"first_name": "John", "email": "john@test.com", "position": "Developer", "is_active": "true"},
		{"first_name": "Jane", "email": "jane@test.com", "position": "Designer", "is_active": "false"},
	}
}

func assertConsistent(t *testing.T, r workerimport.ImportReport) {
	t.Helper()
	assert.Equal(t, r.Total, r.Imported+r.Updated+r.Errors)
	assert.Len(t, r.Failures, r.Errors)
}

func TestPipeline_ScenarioA_CreatesOnEmptyStore(t *testing.T) {
	store, mock, _ := workertest.NewStore(t, worker.WithClock(&steppingClock{t: hiredAt}))
	p := workerimport.NewPipeline(store)
	ctx := context.Background()

	workertest.ExpectCommits(mock, 2)
	report, err := p.Run(ctx, scenarioBatch(), nil)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, 2, report.Total)
	assertConsistent(t, report)

	john, err := store.GetByEmail(ctx, "john@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Developer", john.Position)
	assert.True(t, john.IsActive)
	assert.Nil(t, john.CreatedBy)

	jane, err := store.GetByEmail(ctx, "jane@test.com")
	require.NoError(t, err)
	assert.False(t, jane.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipeline_ScenarioB_RerunUpdates(t *testing.T) {
	store, mock, repo := workertest.NewStore(t, worker.WithClock(&steppingClock{t: hiredAt}))
	p := workerimport.NewPipeline(store)
	ctx := context.Background()

	workertest.ExpectCommits(mock, 4)
	first, err := p.Run(ctx, scenarioBatch(), nil)
	require.NoError(t, err)

	second, err := p.Run(ctx, scenarioBatch(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, 0, second.Errors)
	assert.Equal(t, 2, second.Total)
	assert.Equal(t, first.Errors, second.Errors)
	assertConsistent(t, second)
	assert.Equal(t, 2, repo.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipeline_ScenarioC_UpdateKeepsHiredDateAndCreator(t *testing.T) {
	clock := &steppingClock{t: hiredAt}
	store, mock, _ := workertest.NewStore(t, worker.WithClock(clock))
	p := workerimport.NewPipeline(store)
	ctx := context.Background()
	creator := uuid.New()
	importer := uuid.New()

	workertest.ExpectCommits(mock, 1)
	created, err := store.Create(ctx, worker.CreateWorkerRequest{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     "a@test.com",
		Position:  "Junior",
	}, &creator)
	require.NoError(t, err)

	clock.advance(30 * 24 * time.Hour)

	workertest.ExpectCommits(mock, 1)
	report, err := p.Run(ctx, []workerimport.RawRow{
		{"email": "A@Test.com", "position": "Senior"},
	}, &importer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	found, err := store.GetByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Senior", found.Position)
	assert.Equal(t, "Ann", found.FirstName)
	assert.Equal(t, "Lee", found.LastName)
	assert.True(t, created.HiredDate.Equal(found.HiredDate))
	require.NotNil(t, found.CreatedBy)
	assert.Equal(t, creator.String(), *found.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipeline_EmptyOptionalCellsClear(t *testing.T) {
	store, mock, _ := workertest.NewStore(t, worker.WithClock(&steppingClock{t: hiredAt}))
	p := workerimport.NewPipeline(store)
	ctx := context.Background()

	workertest.ExpectCommits(mock, 1)
	_, err := store.Create(ctx, worker.CreateWorkerRequest{
		FirstName:  "Ann",
		MiddleName: "Marie",
		LastName:   "Lee",
		Email:      "a@test.com",
		Position:   "Junior",
	}, nil)
	require.NoError(t, err)

	workertest.ExpectCommits(mock, 1)
	report, err := p.Run(ctx, []workerimport.RawRow{
		{"email": "a@test.com", "middle_name": "", "position": " ", "last_name": ""},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	found, err := store.GetByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	assert.Empty(t, found.MiddleName)
	assert.Empty(t, found.Position)
	assert.Equal(t, "Lee", found.LastName)
	assert.Equal(t, "Ann", found.FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipeline_RunBatch_ReportsSourceRowNumbers(t *testing.T) {
	store, mock, _ := workertest.NewStore(t)
	p := workerimport.NewPipeline(store)

	batch, err := workerimport.Decode("workers.csv", []byte("first_name,email\nA,a@test.com\n,\n\nB,not-an-email\n"))
	require.NoError(t, err)

	workertest.ExpectCommits(mock, 1)
	report, err := p.RunBatch(context.Background(), batch, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 2, report.Total)
	assertConsistent(t, report)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, workerimport.RowFailure{Row: 4, Email: "not-an-email", Reason: "Email is invalid"}, report.Failures[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipeline_PartialFailureIsolation(t *testing.T) {
	store, mock, repo := workertest.NewStore(t)
	p := workerimport.NewPipeline(store)
	actor := uuid.New()

	rows := []workerimport.RawRow{
		{"first_name": "A", "email": "a@test.com"},
		{"first_name": "B", "email": ""},
		{"first_name": "C", "email": "c@test.com", "is_active": "sometimes"},
		{"email": "d@test.com", "position": "No first name"},
		{"first_name": "E", "email": "e@test.com"},
	}

	workertest.ExpectCommits(mock, 2)
	report, err := p.Run(context.Background(), rows, &actor)

	require.NoError(t, err)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 3, report.Errors)
	assertConsistent(t, report)
	assert.Equal(t, 2, repo.Len())

	require.Len(t, report.Failures, 3)
	assert.Equal(t, workerimport.RowFailure{Row: 2, Email: "", Reason: "Email is required"}, report.Failures[0])
	assert.Equal(t, 3, report.Failures[1].Row)
	assert.Equal(t, "c@test.com", report.Failures[1].Email)
	assert.Equal(t, "Is Active is invalid", report.Failures[1].Reason)
	assert.Equal(t, 4, report.Failures[2].Row)
	assert.Equal(t, "First Name is required", report.Failures[2].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipeline_ActorBecomesCreator(t *testing.T) {
	store, mock, _ := workertest.NewStore(t)
	p := workerimport.NewPipeline(store)
	ctx := context.Background()
	actor := uuid.New()

	workertest.ExpectCommits(mock, 1)
	_, err := p.Run(ctx, []workerimport.RawRow{{"first_name": "A", "email": "a@test.com"}}, &actor)
	require.NoError(t, err)

	found, err := store.GetByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	require.NotNil(t, found.CreatedBy)
	assert.Equal(t, actor.String(), *found.CreatedBy)
}

type fakeResolver struct {
	id    *uuid.UUID
	err   error
	calls int
}

func (f *fakeResolver) FirstUserID(context.Context) (*uuid.UUID, error) {
	f.calls++
	return f.id, f.err
}

func TestPipeline_FallbackCreator(t *testing.T) {
	ctx := context.Background()
	rows := []workerimport.RawRow{{"first_name": "A", "email": "a@test.com"}}

	t.Run("disabled leaves creator empty", func(t *testing.T) {
		store, mock, _ := workertest.NewStore(t)
		p := workerimport.NewPipeline(store)

		workertest.ExpectCommits(mock, 1)
		_, err := p.Run(ctx, rows, nil)
		require.NoError(t, err)

		found, err := store.GetByEmail(ctx, "a@test.com")
		require.NoError(t, err)
		assert.Nil(t, found.CreatedBy)
	})

	t.Run("enabled attributes first user", func(t *testing.T) {
		store, mock, _ := workertest.NewStore(t)
		first := uuid.New()
		resolver := &fakeResolver{id: &first}
		p := workerimport.NewPipeline(store, workerimport.WithFallbackCreator(resolver))

		workertest.ExpectCommits(mock, 1)
		_, err := p.Run(ctx, rows, nil)
		require.NoError(t, err)

		found, err := store.GetByEmail(ctx, "a@test.com")
		require.NoError(t, err)
		require.NotNil(t, found.CreatedBy)
		assert.Equal(t, first.String(), *found.CreatedBy)
		assert.Equal(t, 1, resolver.calls)
	})

	t.Run("acting user wins over fallback", func(t *testing.T) {
		store, mock, _ := workertest.NewStore(t)
		resolver := &fakeResolver{}
		p := workerimport.NewPipeline(store, workerimport.WithFallbackCreator(resolver))
		actor := uuid.New()

		workertest.ExpectCommits(mock, 1)
		_, err := p.Run(ctx, rows, &actor)
		require.NoError(t, err)
		assert.Equal(t, 0, resolver.calls)
	})

	t.Run("resolver failure aborts before any row", func(t *testing.T) {
		store, _, repo := workertest.NewStore(t)
		p := workerimport.NewPipeline(store, workerimport.WithFallbackCreator(&fakeResolver{err: errors.New("db down")}))

		report, err := p.Run(ctx, rows, nil)

		assert.Error(t, err)
		assert.Equal(t, 0, report.Total)
		assert.Equal(t, 0, repo.Len())
	})
}

// scriptedStore fails or cancels on demand.
type scriptedStore struct {
	getErr   error
	onCreate func()
	created  int
}

func (s *scriptedStore) GetByEmail(context.Context, string) (worker.WorkerDetailResponse, error) {
	if s.getErr != nil {
		return worker.WorkerDetailResponse{}, s.getErr
	}
	return worker.WorkerDetailResponse{}, workererrors.ErrWorkerNotFound
}

func (s *scriptedStore) Create(context.Context, worker.CreateWorkerRequest, *uuid.UUID) (worker.WorkerDetailResponse, error) {
	s.created++
	if s.onCreate != nil {
		s.onCreate()
	}
	return worker.WorkerDetailResponse{}, nil
}

func (s *scriptedStore) UpdateByEmail(context.Context, string, worker.UpdateWorkerRequest) (worker.WorkerDetailResponse, error) {
	return worker.WorkerDetailResponse{}, nil
}

func TestPipeline_InfrastructureErrorsAreRowErrors(t *testing.T) {
	store := &scriptedStore{getErr: errors.New("connection refused")}
	p := workerimport.NewPipeline(store)

	report, err := p.Run(context.Background(), scenarioBatch(), nil)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Errors)
	assert.Equal(t, "internal error", report.Failures[0].Reason)
	assertConsistent(t, report)
}

func TestPipeline_CancellationStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &scriptedStore{onCreate: cancel}
	p := workerimport.NewPipeline(store)

	rows := append(scenarioBatch(), workerimport.RawRow{"first_name": "X", "email": "x@test.com"})
	report, err := p.Run(ctx, rows, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.created)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Imported)
	assertConsistent(t, report)
}

func TestPipeline_DuplicateRaceIsRowError(t *testing.T) {
	store := &raceStore{}
	p := workerimport.NewPipeline(store)

	report, err := p.Run(context.Background(), []workerimport.RawRow{{"first_name": "A", "email": "a@test.com"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, "Worker with the same email already exists", report.Failures[0].Reason)
}

// raceStore reports the row absent, then loses the insert to a concurrent
// import.
type raceStore struct{ scriptedStore }

func (s *raceStore) Create(context.Context, worker.CreateWorkerRequest, *uuid.UUID) (worker.WorkerDetailResponse, error) {
	return worker.WorkerDetailResponse{}, workererrors.ErrWorkerAlreadyExists
}
