package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload is what the identity service knows when it mints a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Phone  string
	JTI    string
}

// AccessTokenClaims is the body of a shopper access token.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Phone  string    `json:"phone"`
	jwt.RegisteredClaims
}

var ErrIncompleteClaims = errors.New("access token is missing user, phone or jti")

// Validate runs after the registered-claim checks. A token must name its user
// consistently and carry the jti its refresh session is stored under.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Phone == "" || c.ID == "" {
		return ErrIncompleteClaims
	}
	if c.Subject != c.UserID.String() {
		return ErrIncompleteClaims
	}
	return nil
}
