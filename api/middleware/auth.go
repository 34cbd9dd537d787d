package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/quickdelivery-backend/api/responses"
	pkgAuth "github.com/angelmondragon/quickdelivery-backend/pkg/auth"
	"github.com/angelmondragon/quickdelivery-backend/pkg/auth/session"
	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

// Auth validates a bearer token against a live access session and seeds the
// request context with the caller's identity. A nil checker skips the session
// lookup.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			userID := claims.UserID.String()
			ctx := context.WithValue(r.Context(), ctxUserID, userID)
			ctx = context.WithValue(ctx, ctxPhone, claims.Phone)
			ctx = context.WithValue(ctx, ctxAccessID, claims.ID)
			next.ServeHTTP(w, r.WithContext(logg.WithUserID(ctx, userID)))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if verifier == nil {
		return claims, nil
	}
	live, err := verifier.HasSession(r.Context(), claims.ID)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	case !live:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims, nil
}

// BearerToken extracts the credentials of an "Authorization: Bearer" header.
// Other schemes are treated as missing.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
