// Package store provides durable key/value storage backends for ganalytics.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore ready")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetInt(key string, defaultValue int) int {
	return parseIntOrDefault(s.GetString(key), defaultValue)
}

func (s *PostgresStore) SetInt(key string, value int) error {
	return s.SetString(key, formatInt(value))
}

func (s *PostgresStore) GetString(key string) string {
	var val string
	err := s.db.QueryRow(`SELECT v FROM kv_entries WHERE k = $1`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		slog.Error("PostgresStore.GetString: query failed", "error", err, "key", key)
		return ""
	}
	return val
}

func (s *PostgresStore) SetString(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv_entries (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`, key, value)
	if err != nil {
		slog.Error("PostgresStore.SetString: upsert failed", "error", err, "key", key)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) DeleteKey(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv_entries WHERE k = $1`, key)
	if err != nil {
		slog.Error("PostgresStore.DeleteKey: delete failed", "error", err, "key", key)
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) HasKey(key string) bool {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM kv_entries WHERE k = $1)`, key).Scan(&exists)
	if err != nil {
		slog.Error("PostgresStore.HasKey: query failed", "error", err, "key", key)
		return false
	}
	return exists
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
