package workertest

import (
	"testing"

	"github.com/OlegKumachev/kiout-test-backend/internal/worker"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// NewStore returns a worker.Service over a fresh MemoryRepository. Every
// mutation still opens a transaction, so callers queue sqlmock expectations.
func NewStore(t testing.TB, opts ...worker.Option) (worker.Service, sqlmock.Sqlmock, *MemoryRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewMemoryRepository()
	return worker.NewService(db, repo, nil, nil, opts...), mock, repo
}

// ExpectCommits queues n successful transactions.
func ExpectCommits(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}
