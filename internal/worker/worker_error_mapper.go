package worker

import (
	"errors"
	"strings"

	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const emailUniqueConstraint = "uq_workers_email"

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workererrors.ErrWorkerNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == emailUniqueConstraint {
			return workererrors.ErrWorkerAlreadyExists
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, emailUniqueConstraint) {
		return workererrors.ErrWorkerAlreadyExists
	}

	return err
}
