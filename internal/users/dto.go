package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
)

// UserDTO is the transport shape returned after sign-in.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Phone       string     `json:"phone"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Phone:       u.Phone,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
