package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const displayModeKey = "tvteam:display_mode"

// RedisModeStore persists the global display mode in Redis (no TTL) so it
// survives server restarts.
type RedisModeStore struct {
	client *redis.Client
}

func NewRedisModeStore(client *redis.Client) *RedisModeStore {
	return &RedisModeStore{client: client}
}

func (s *RedisModeStore) Mode(ctx context.Context) (string, error) {
	mode, err := s.client.Get(ctx, displayModeKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get display mode: %w", err)
	}
	return mode, nil
}

func (s *RedisModeStore) SetMode(ctx context.Context, mode string) error {
	if err := s.client.Set(ctx, displayModeKey, mode, 0).Err(); err != nil {
		return fmt.Errorf("set display mode: %w", err)
	}
	return nil
}

// MemoryModeStore keeps the mode in process memory (tests, dev mode).
type MemoryModeStore struct {
	mu   sync.Mutex
	mode string
}

func NewMemoryModeStore() *MemoryModeStore {
	return &MemoryModeStore{}
}

func (s *MemoryModeStore) Mode(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, nil
}

func (s *MemoryModeStore) SetMode(ctx context.Context, mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}
