package worker

import (
	"context"
	"database/sql"
	"strings"

	"gorm.io/gorm"
)

//go:generate mockgen -source=worker_repo.go -destination=mock/worker_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, w *Worker) error
	FindByID(ctx context.Context, id string) (*Worker, error)
	FindByEmail(ctx context.Context, email string) (*Worker, error)
	FindAll(ctx context.Context, filter ListFilter) ([]Worker, error)
	Update(ctx context.Context, w *Worker) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

// conn returns a session bound to ctx that runs on the service transaction
// when one was attached with WithTx.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, w *Worker) error {
	return r.conn(ctx).Create(w).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Worker, error) {
	var w Worker
	if err := r.conn(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Worker, error) {
	var w Worker
	if err := r.conn(ctx).First(&w, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) FindAll(ctx context.Context, filter ListFilter) ([]Worker, error) {
	q := r.conn(ctx).Model(&Worker{})
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Position != nil {
		q = q.Where("position = ?", *filter.Position)
	}
	if term := strings.TrimSpace(filter.Q); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where(
			"LOWER(first_name) LIKE ? OR LOWER(middle_name) LIKE ? OR LOWER(last_name) LIKE ? OR email LIKE ?",
			like, like, like, like,
		)
	}

	var workers []Worker
	err := q.Order("hired_date ASC").Order("id ASC").Find(&workers).Error
	return workers, err
}

func (r *repository) Update(ctx context.Context, w *Worker) error {
	res := r.conn(ctx).
		Model(w).
		Select(mutableColumns).
		Updates(w)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&Worker{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
