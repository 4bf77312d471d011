package rbac

import (
	"errors"

	"gorm.io/gorm"
)

//go:generate mockgen -source=rbac_repo.go -destination=mock/rbac_repo_mock.go -package=mock
type Repository interface {
	// GetUserRole returns nil when the user does not exist.
	GetUserRole(userID string) (*UserRoleRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type UserRoleRow struct {
	IsStaff  bool
	IsActive bool
}

func (r *repository) GetUserRole(userID string) (*UserRoleRow, error) {
	var row UserRoleRow
	err := r.db.
		Table("users").
		Select("is_staff, is_active").
		Where("id = ?", userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
