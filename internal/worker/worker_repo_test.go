package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/worker"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormRepo(t *testing.T) (worker.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return worker.NewRepository(gdb), mock
}

var workerColumns = []string{
	"id", "first_name", "middle_name", "last_name", "email", "position",
	"is_active", "hired_date", "created_by", "created_at", "updated_at",
}

func TestRepository_FindByEmail(t *testing.T) {
	repo, mock := newGormRepo(t)
	id := uuid.New()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "workers" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(workerColumns).
			AddRow(id, "Ann", "", "Lee", "ann@example.com", "QA", true, now, nil, now, now))

	w, err := repo.FindByEmail(context.Background(), "ann@example.com")

	require.NoError(t, err)
	assert.Equal(t, id, w.ID)
	assert.Equal(t, "QA", w.Position)
	assert.Nil(t, w.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByEmail_NotFound(t *testing.T) {
	repo, mock := newGormRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "workers" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(workerColumns))

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_FindAll_AppliesFilters(t *testing.T) {
	repo, mock := newGormRepo(t)
	active := true
	position := "QA"

	mock.ExpectQuery(`SELECT \* FROM "workers" WHERE is_active = \$1 AND position = \$2 AND \(LOWER\(first_name\) LIKE \$3 OR LOWER\(middle_name\) LIKE \$4 OR LOWER\(last_name\) LIKE \$5 OR email LIKE \$6\) ORDER BY hired_date ASC,id ASC`).
		WithArgs(true, "QA", "%lee%", "%lee%", "%lee%", "%lee%").
		WillReturnRows(sqlmock.NewRows(workerColumns))

	workers, err := repo.FindAll(context.Background(), worker.ListFilter{
		IsActive: &active,
		Position: &position,
		Q:        " Lee ",
	})

	require.NoError(t, err)
	assert.Empty(t, workers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete_Missing(t *testing.T) {
	repo, mock := newGormRepo(t)

	mock.ExpectExec(`DELETE FROM "workers" WHERE id = \$1`).
		WithArgs("4b1f6a4e-0000-0000-0000-000000000000").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "4b1f6a4e-0000-0000-0000-000000000000")

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
