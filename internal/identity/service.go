package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/internal/address"
	"github.com/angelmondragon/quickdelivery-backend/internal/users"
	pkgauth "github.com/angelmondragon/quickdelivery-backend/pkg/auth"
	"github.com/angelmondragon/quickdelivery-backend/pkg/auth/session"
	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/quickdelivery-backend/pkg/redis"
	"github.com/angelmondragon/quickdelivery-backend/pkg/security"
	"github.com/google/uuid"
)

const invalidCodeMessage = "invalid or expired code"

// Service signs shoppers in with a phone number and a one-time code.
type Service interface {
	RequestCode(ctx context.Context, phone string) (*CodeChallenge, error)
	VerifyCode(ctx context.Context, handle, code string) (*SignIn, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessID string) error
}

type codeStore interface {
	pkgredis.KV
	OTPKey(handle string) string
	IdempotencyKey(scope, id string) string
}

type userRepository interface {
	FindOrCreateByPhone(ctx context.Context, phone string) (*models.User, bool, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build the identity service.
type ServiceParams struct {
	Codes          codeStore
	Limiter        pkgredis.RateLimiter
	Users          userRepository
	SessionManager sessionManager
	Sender         SMSSender
	OTPConfig      config.OTPConfig
	JWTConfig      config.JWTConfig
	Logger         *logger.Logger
}

type service struct {
	codes   codeStore
	limiter pkgredis.RateLimiter
	users   userRepository
	session sessionManager
	sender  SMSSender
	otpCfg  config.OTPConfig
	jwtCfg  config.JWTConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the phone sign-in service.
func NewService(params ServiceParams) (Service, error) {
	if params.Codes == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if params.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sms sender is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.OTPConfig.TTL <= 0 || params.OTPConfig.CodeLength <= 0 || params.OTPConfig.MaxAttempts <= 0 {
		return nil, fmt.Errorf("otp ttl, code length and max attempts must be positive")
	}
	return &service{
		codes:   params.Codes,
		limiter: params.Limiter,
		users:   params.Users,
		session: params.SessionManager,
		sender:  params.Sender,
		otpCfg:  params.OTPConfig,
		jwtCfg:  params.JWTConfig,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) RequestCode(ctx context.Context, phone string) (*CodeChallenge, error) {
	phone = strings.TrimSpace(phone)
	if !address.ValidMobile(phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please enter a valid 10-digit mobile number").
			WithDetails(map[string]any{"field": "phone"})
	}

	if s.otpCfg.RequestLimit > 0 {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "otp:"+phone, int64(s.otpCfg.RequestLimit), s.otpCfg.RequestWindow)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check otp rate limit")
		}
		if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many code requests, try again later")
		}
	}

	code, err := security.GenerateNumericCode(s.otpCfg.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}
	hash, err := security.HashCode(code, s.otpCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash code")
	}
	handle, err := security.NewHandle()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate handle")
	}

	pending := pendingCode{Phone: phone, Hash: hash, ExpiresAt: s.now().Add(s.otpCfg.TTL)}
	if err := s.saveCode(ctx, handle, pending); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("%s is your QuickDelivery login code. It expires in %d minutes.", code, int(s.otpCfg.TTL.Minutes()))
	if err := s.sender.Send(ctx, phone, message); err != nil {
		_ = s.codes.Del(ctx, s.codes.OTPKey(handle))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send code")
	}

	challenge := &CodeChallenge{Handle: handle, ExpiresIn: int(s.otpCfg.TTL.Seconds())}
	if s.otpCfg.DemoMode {
		challenge.DemoCode = code
	}
	return challenge, nil
}

func (s *service) VerifyCode(ctx context.Context, handle, code string) (*SignIn, error) {
	handle = strings.TrimSpace(handle)
	code = strings.TrimSpace(code)
	if handle == "" || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "handle and code are required")
	}

	key := s.codes.OTPKey(handle)
	pending, err := s.loadCode(ctx, key)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !now.Before(pending.ExpiresAt) {
		_ = s.codes.Del(ctx, key)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}

	ok, err := security.VerifyCode(code, pending.Hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify code")
	}
	if !ok {
		return nil, s.recordFailure(ctx, handle, pending, now)
	}

	claimed, err := s.codes.SetNX(ctx, s.codes.IdempotencyKey("otp:consume", handle), "1", s.otpCfg.TTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim code")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}
	if err := s.codes.Del(ctx, key); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "otp.delete_failed")
	}

	user, created, err := s.users.FindOrCreateByPhone(ctx, pending.Phone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find or create user")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	pair, err := s.issue(ctx, user.ID, user.Phone, now)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithUserID(ctx, user.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "new_user", created), "otp.verified")

	return &SignIn{
		UserID:       user.ID.String(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, strings.TrimSpace(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	access, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: claims.UserID,
		Phone:  claims.Phone,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) issue(ctx context.Context, userID uuid.UUID, phone string, now time.Time) (*TokenPair, error) {
	accessID := session.NewAccessID()
	access, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: userID,
		Phone:  phone,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refresh, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) recordFailure(ctx context.Context, handle string, pending pendingCode, now time.Time) error {
	pending.Attempts++
	key := s.codes.OTPKey(handle)
	if pending.Attempts >= s.otpCfg.MaxAttempts {
		if err := s.codes.Del(ctx, key); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard code")
		}
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many incorrect attempts, request a new code")
	}
	if err := s.saveCodeWithTTL(ctx, key, pending, pending.ExpiresAt.Sub(now)); err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage).
		WithDetails(map[string]any{"attempts_left": s.otpCfg.MaxAttempts - pending.Attempts})
}

func (s *service) saveCode(ctx context.Context, handle string, pending pendingCode) error {
	return s.saveCodeWithTTL(ctx, s.codes.OTPKey(handle), pending, s.otpCfg.TTL)
}

func (s *service) saveCodeWithTTL(ctx context.Context, key string, pending pendingCode, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}
	raw, err := json.Marshal(pending)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode code")
	}
	if err := s.codes.Set(ctx, key, raw, ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store code")
	}
	return nil
}

func (s *service) loadCode(ctx context.Context, key string) (pendingCode, error) {
	raw, err := s.codes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return pendingCode{}, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
		}
		return pendingCode{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	var pending pendingCode
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		_ = s.codes.Del(ctx, key)
		return pendingCode{}, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}
	return pending, nil
}
