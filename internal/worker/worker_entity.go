package worker

import (
	"time"

	"github.com/google/uuid"
)

// Worker defaults (is_active = true) live in the migration. Keeping them off the
// gorm tags stops gorm from replacing an explicit false with the default.
type Worker struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	FirstName  string     `gorm:"size:50;not null"`
	MiddleName string     `gorm:"size:50;not null"`
	LastName   string     `gorm:"size:50;not null"`
	Email      string     `gorm:"size:255;not null;uniqueIndex:uq_workers_email"`
	Position   string     `gorm:"size:100;not null;index"`
	IsActive   bool       `gorm:"not null;index"`
	HiredDate  time.Time  `gorm:"not null"`
	CreatedBy  *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Worker) TableName() string {
	return "workers"
}

// mutableColumns are the only columns an update may write. hired_date and
// created_by are set once by Create.
var mutableColumns = []string{
	"first_name",
	"middle_name",
	"last_name",
	"email",
	"position",
	"is_active",
	"updated_at",
}
