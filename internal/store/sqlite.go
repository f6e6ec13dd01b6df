// Package store provides durable key/value storage backends for ganalytics.
//
// This file implements the SQLite-backed store, the default backend.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure the kv table exists
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore ready", "path", dsn)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetInt(key string, defaultValue int) int {
	return parseIntOrDefault(s.GetString(key), defaultValue)
}

func (s *SQLiteStore) SetInt(key string, value int) error {
	return s.SetString(key, formatInt(value))
}

func (s *SQLiteStore) GetString(key string) string {
	var val string
	err := s.db.QueryRow(`SELECT v FROM kv_entries WHERE k = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		slog.Error("SQLiteStore.GetString: query failed", "error", err, "key", key)
		return ""
	}
	return val
}

func (s *SQLiteStore) SetString(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv_entries (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	if err != nil {
		slog.Error("SQLiteStore.SetString: upsert failed", "error", err, "key", key)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteKey(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv_entries WHERE k = ?`, key)
	if err != nil {
		slog.Error("SQLiteStore.DeleteKey: delete failed", "error", err, "key", key)
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) HasKey(key string) bool {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM kv_entries WHERE k = ?)`, key).Scan(&exists)
	if err != nil {
		slog.Error("SQLiteStore.HasKey: query failed", "error", err, "key", key)
		return false
	}
	return exists
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
