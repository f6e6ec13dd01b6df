// Package store provides durable key/value storage backends for ganalytics.
//
// The offline queue and session counters persist through the KV interface.
// SQLite, PostgreSQL and Redis backends survive process restart; the in-memory
// backend is for tests and ephemeral runs.
package store

import (
	"sync"
)

// KV is the durable key/value contract consumed by the queue and session
// components. All operations are synchronous. Read methods absorb backend
// errors (logging them) and return the zero/default value so callers never
// branch on storage failures.
type KV interface {
	// GetInt returns the integer stored under key, or defaultValue if the key
	// is absent or unparseable.
	GetInt(key string, defaultValue int) int

	// SetInt stores an integer under key, overwriting any previous value.
	SetInt(key string, value int) error

	// GetString returns the string stored under key, or "" if absent.
	GetString(key string) string

	// SetString stores a string under key, overwriting any previous value.
	SetString(key, value string) error

	// DeleteKey removes key. Deleting an absent key is not an error.
	DeleteKey(key string) error

	// HasKey reports whether key is present.
	HasKey(key string) bool

	// Close releases any backend resources.
	Close() error
}

// Opts holds configuration for store backends.
type Opts struct {
	// DSN is the database connection string (file path for SQLite,
	// connection URL for Postgres).
	DSN string
	// RedisAddr is the Redis server address (host:port).
	RedisAddr string
	// RedisPassword is the optional Redis auth password.
	RedisPassword string
	// RedisDB is the Redis database number.
	RedisDB int
	// RedisPrefix is prepended to every key in Redis to namespace this
	// application's state.
	RedisPrefix string
}

// Option configures store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithRedisAddr sets the Redis server address.
func WithRedisAddr(addr string) Option {
	return func(o *Opts) { o.RedisAddr = addr }
}

// WithRedisPassword sets the Redis auth password.
func WithRedisPassword(password string) Option {
	return func(o *Opts) { o.RedisPassword = password }
}

// WithRedisDB sets the Redis database number.
func WithRedisDB(db int) Option {
	return func(o *Opts) { o.RedisDB = db }
}

// WithRedisPrefix sets the Redis key namespace prefix.
func WithRedisPrefix(prefix string) Option {
	return func(o *Opts) { o.RedisPrefix = prefix }
}

// InMemoryStore is a map-backed KV for tests and ephemeral runs. It does not
// survive restart.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]string)}
}

func (s *InMemoryStore) GetInt(key string, defaultValue int) int {
	s.mu.RLock()
	val, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return defaultValue
	}
	return parseIntOrDefault(val, defaultValue)
}

func (s *InMemoryStore) SetInt(key string, value int) error {
	return s.SetString(key, formatInt(value))
}

func (s *InMemoryStore) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

func (s *InMemoryStore) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *InMemoryStore) DeleteKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *InMemoryStore) HasKey(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

func (s *InMemoryStore) Close() error { return nil }

// Snapshot returns a copy of the current contents. Used by tests to simulate
// a process restart over the same durable state.
func (s *InMemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Restore replaces the contents with a previously taken snapshot.
func (s *InMemoryStore) Restore(snapshot map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string, len(snapshot))
	for k, v := range snapshot {
		s.data[k] = v
	}
}
