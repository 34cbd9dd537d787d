package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/quickdelivery-backend/pkg/redis"
)

// ErrStaleRevision is returned by Save when the blob changed after it was loaded.
var ErrStaleRevision = errors.New("cart session changed since load")

// Revision identifies the blob a State was loaded from. The zero value stands
// for a session that has never been saved.
type Revision string

// SessionRepository persists the whole aggregate for one session. Save is a
// compare-and-swap against the revision returned by Load, so writers in other
// processes cannot silently overwrite each other.
type SessionRepository interface {
	Load(ctx context.Context, sessionID string) (State, Revision, error)
	Save(ctx context.Context, sessionID string, prev Revision, state State) error
}

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	SwapIfValue(ctx context.Context, key, expected string, value any, ttl time.Duration) (bool, error)
	CartSessionKey(sessionID string) string
}

type redisSessionRepository struct {
	store sessionStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewSessionRepository stores session blobs as JSON in redis.
func NewSessionRepository(store sessionStore, ttl time.Duration, logg *logger.Logger) (SessionRepository, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &redisSessionRepository{store: store, ttl: ttl, logg: logg}, nil
}

// Load returns the empty aggregate for a missing or unreadable blob. An
// unreadable blob still yields its revision so the next save replaces it.
func (r *redisSessionRepository) Load(ctx context.Context, sessionID string) (State, Revision, error) {
	raw, err := r.store.Get(ctx, r.store.CartSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return State{}, "", nil
		}
		return State{}, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart session")
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		ctx = r.logg.WithFields(ctx, map[string]any{"session_id": sessionID, "error": err.Error()})
		r.logg.Warn(ctx, "discarding unreadable cart session")
		return State{}, Revision(raw), nil
	}
	return state, Revision(raw), nil
}

func (r *redisSessionRepository) Save(ctx context.Context, sessionID string, prev Revision, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart session")
	}
	ok, err := r.store.SwapIfValue(ctx, r.store.CartSessionKey(sessionID), string(prev), string(payload), r.ttl)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart session")
	}
	if !ok {
		return ErrStaleRevision
	}
	return nil
}
