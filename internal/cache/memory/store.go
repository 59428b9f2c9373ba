package memory

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var errClosed = fmt.Errorf("memory: store is closed")

// Store is an in-process LRU with per-entry TTL.
type Store struct {
	lru    *expirable.LRU[string, []byte]
	closed atomic.Bool
}

func New(maxEntries int, ttl time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Store{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, errClosed
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, fmt.Errorf("key is required")
	}
	raw, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return errClosed
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key is required")
	}
	s.lru.Add(key, append([]byte(nil), value...))
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if s.closed.Load() {
		return errClosed
	}
	s.lru.Remove(strings.TrimSpace(key))
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	if s.closed.Load() {
		return errClosed
	}
	s.lru.Purge()
	return nil
}

func (s *Store) Len() int { return s.lru.Len() }

// Close drops every entry; later calls fail.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.lru.Purge()
	return nil
}
