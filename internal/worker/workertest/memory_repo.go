// Package workertest provides an in-memory worker.Repository for tests that
// need real store semantics without a database.
package workertest

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/OlegKumachev/kiout-test-backend/internal/worker"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type MemoryRepository struct {
	mu    sync.Mutex
	order []string
	rows  map[string]worker.Worker
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]worker.Worker)}
}

// WithTx ignores the transaction; every call is applied immediately.
func (r *MemoryRepository) WithTx(_ *sql.Tx) worker.Repository {
	return r
}

func (r *MemoryRepository) Create(_ context.Context, w *worker.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(w.Email, "") {
		return duplicateEmail()
	}
	id := w.ID.String()
	r.rows[id] = *w
	r.order = append(r.order, id)
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*worker.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &w, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*worker.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		if w := r.rows[id]; w.Email == email {
			return &w, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryRepository) FindAll(_ context.Context, filter worker.ListFilter) ([]worker.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(filter.Q))
	out := make([]worker.Worker, 0, len(r.order))
	for _, id := range r.order {
		w := r.rows[id]
		if filter.IsActive != nil && w.IsActive != *filter.IsActive {
			continue
		}
		if filter.Position != nil && w.Position != *filter.Position {
			continue
		}
		if q != "" && !matches(w, q) {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// Update writes only the columns the gorm repository writes.
func (r *MemoryRepository) Update(_ context.Context, w *worker.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := w.ID.String()
	stored, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.emailTakenLocked(w.Email, id) {
		return duplicateEmail()
	}

	stored.FirstName = w.FirstName
	stored.MiddleName = w.MiddleName
	stored.LastName = w.LastName
	stored.Email = w.Email
	stored.Position = w.Position
	stored.IsActive = w.IsActive
	stored.UpdatedAt = w.UpdatedAt
	r.rows[id] = stored
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports how many workers are stored.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *MemoryRepository) emailTakenLocked(email, exceptID string) bool {
	for id, w := range r.rows {
		if id != exceptID && w.Email == email {
			return true
		}
	}
	return false
}

func matches(w worker.Worker, q string) bool {
	for _, v := range []string{w.FirstName, w.MiddleName, w.LastName, w.Email} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

func duplicateEmail() error {
	return &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uq_workers_email",
		Message:        `duplicate key value violates unique constraint "uq_workers_email"`,
	}
}
