// Package redistest provides an in-memory stand-in for the redis client in tests.
package redistest

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/angelmondragon/quickdelivery-backend/pkg/redis"
	"github.com/redis/go-redis/v9"
)

// Store keeps values in a map. Key builders are promoted from the real client so
// keys match production layout.
type Store struct {
	pkgredis.Client

	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	counter map[string]int64

	// FailGet forces Get to return the given error when set.
	FailGet error
	// FailSwap forces SwapIfValue to return the given error when set.
	FailSwap error
}

func New() *Store {
	return &Store{
		data:    map[string]string{},
		ttls:    map[string]time.Duration{},
		counter: map[string]int64{},
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGet != nil {
		return "", s.FailGet
	}
	v, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = stringify(value)
	s.ttls[key] = ttl
	return nil
}

func (s *Store) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = stringify(value)
	s.ttls[key] = ttl
	return true, nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
		delete(s.ttls, key)
	}
	return nil
}

func (s *Store) DelIfValue(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.data[key]; !ok || current != value {
		return false, nil
	}
	delete(s.data, key)
	delete(s.ttls, key)
	return true, nil
}

func (s *Store) SwapIfValue(_ context.Context, key, expected string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSwap != nil {
		return false, s.FailSwap
	}
	current, ok := s.data[key]
	if (!ok && expected != "") || (ok && current != expected) {
		return false, nil
	}
	s.data[key] = stringify(value)
	s.ttls[key] = ttl
	return true, nil
}

func (s *Store) ExpireIfValue(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.data[key]; !ok || current != value {
		return false, nil
	}
	s.ttls[key] = ttl
	return true, nil
}

func (s *Store) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter[scope]++
	count := s.counter[scope]
	return count <= limit, count, nil
}

// TTL returns the TTL recorded for key on its last write.
func (s *Store) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

// Has reports whether key currently holds a value.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// Raw returns the stored value without error handling.
func (s *Store) Raw(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key]
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
