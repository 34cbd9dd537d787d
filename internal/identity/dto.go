package identity

import (
	"time"

	"github.com/angelmondragon/quickdelivery-backend/internal/users"
)

// CodeChallenge is returned after a code has been sent.
type CodeChallenge struct {
	Handle    string `json:"handle"`
	ExpiresIn int    `json:"expires_in_seconds"`
	DemoCode  string `json:"demo_code,omitempty"`
}

// SignIn is the result of a verified code.
type SignIn struct {
	UserID       string         `json:"user_id"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// TokenPair is returned by Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type pendingCode struct {
	Phone     string    `json:"phone"`
	Hash      string    `json:"hash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}
