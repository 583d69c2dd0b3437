// Package storage holds the portal's durable client-side state: a small
// key/value store and the session cookie writer.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyValue is a durable string store. Get never fails; a missing or
// unreadable key yields def.
type KeyValue interface {
	Get(key, def string) string
	Set(key, value string) error
}

// KeyInitialEmail holds the e-mail of the last signed-in account.
const KeyInitialEmail = "initialEmail"

const stateFileName = "state.json"

// FileStore keeps all keys in one JSON file under dir.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates dir with 0700 if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, stateFileName)}, nil
}

func (s *FileStore) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return m, nil
}

func (s *FileStore) Get(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return def
	}
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		// a corrupt file is replaced
		m = map[string]string{}
	}
	m[key] = value
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// RedisStore keeps keys in Redis under a prefix, shared by every portal
// instance pointed at the same server.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, timeout: 2 * time.Second}
}

func (s *RedisStore) Get(key, def string) string {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if err != nil {
		return def
	}
	return v
}

func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.rdb.Set(ctx, s.prefix+key, value, 0).Err()
}

// MemoryStore is an in-process KeyValue.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{m: map[string]string{}} }

func (s *MemoryStore) Get(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return v
	}
	return def
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}
