package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
)

// maxSaveAttempts bounds how often Update replans after losing a race with a
// writer in another process.
const maxSaveAttempts = 5

// Store serializes mutations per session: each dispatch loads the blob, reduces
// and persists before the next one for the same session starts. The in-process
// lock only orders local callers; the repository's revision check catches
// writers elsewhere and Update replans on top of their result.
type Store struct {
	repo SessionRepository

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore(repo SessionRepository) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	return &Store{repo: repo, locks: map[string]*sessionLock{}}, nil
}

// Load returns the current aggregate for sessionID.
func (s *Store) Load(ctx context.Context, sessionID string) (State, error) {
	if err := checkSession(sessionID); err != nil {
		return State{}, err
	}
	unlock := s.lock(sessionID)
	defer unlock()
	state, _, err := s.repo.Load(ctx, sessionID)
	return state, err
}

// Dispatch applies intents in order and persists the settled state.
func (s *Store) Dispatch(ctx context.Context, sessionID string, intents ...Intent) (State, error) {
	return s.Update(ctx, sessionID, func(State) ([]Intent, error) {
		return intents, nil
	})
}

// Update lets plan inspect the current state and choose the intents to apply,
// all under the session lock. Nothing is persisted when plan fails or returns
// no intents. plan runs again whenever another process saved the session in
// between, so it must not have side effects.
func (s *Store) Update(ctx context.Context, sessionID string, plan func(State) ([]Intent, error)) (State, error) {
	if err := checkSession(sessionID); err != nil {
		return State{}, err
	}
	unlock := s.lock(sessionID)
	defer unlock()

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		current, rev, err := s.repo.Load(ctx, sessionID)
		if err != nil {
			return State{}, err
		}
		intents, err := plan(current.Clone())
		if err != nil {
			return State{}, err
		}
		if len(intents) == 0 {
			return current, nil
		}

		next := ReduceAll(current, intents...)
		err = s.repo.Save(ctx, sessionID, rev, next)
		if errors.Is(err, ErrStaleRevision) {
			if ctx.Err() != nil {
				return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "save cart session")
			}
			continue
		}
		if err != nil {
			return State{}, err
		}
		return next, nil
	}
	return State{}, pkgerrors.New(pkgerrors.CodeConflict, "cart session is being modified, try again").
		WithDetails(map[string]any{"attempts": maxSaveAttempts})
}

func (s *Store) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func checkSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart session id is required")
	}
	return nil
}
