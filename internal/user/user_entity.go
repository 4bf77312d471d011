package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Username  string    `gorm:"column:username;type:varchar(150);not null;uniqueIndex:uq_users_username"`
	Email     string    `gorm:"column:email;type:varchar(254);not null"`
	Password  string    `gorm:"column:password;type:text;not null"`
	IsStaff   bool      `gorm:"column:is_staff;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
