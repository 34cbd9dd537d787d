package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a customer identified by a verified mobile number.
type User struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Phone       string     `gorm:"column:phone;not null;uniqueIndex"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
