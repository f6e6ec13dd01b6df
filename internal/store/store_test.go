package store

import (
	"path/filepath"
	"syscall"
	"testing"
)

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()

	if s.HasKey("missing") {
		t.Error("HasKey reported a missing key as present")
	}
	if got := s.GetInt("missing", 42); got != 42 {
		t.Errorf("GetInt default = %d, want 42", got)
	}
	if got := s.GetString("missing"); got != "" {
		t.Errorf("GetString missing = %q, want empty", got)
	}

	if err := s.SetInt("count", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.GetInt("count", 0); got != 7 {
		t.Errorf("GetInt = %d, want 7", got)
	}
	if err := s.SetString("url", "http://example.com/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.GetString("url"); got != "http://example.com/x" {
		t.Errorf("GetString = %q, want http://example.com/x", got)
	}
	if !s.HasKey("url") {
		t.Error("HasKey did not find stored key")
	}
	if err := s.DeleteKey("url"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.HasKey("url") {
		t.Error("key survived deletion")
	}
}

func TestInMemoryStoreSnapshotRestore(t *testing.T) {
	s := NewInMemoryStore()
	s.SetString("a", "1")
	s.SetInt("b", 2)

	snap := s.Snapshot()
	s2 := NewInMemoryStore()
	s2.Restore(snap)

	if got := s2.GetString("a"); got != "1" {
		t.Errorf("restored a = %q, want 1", got)
	}
	if got := s2.GetInt("b", 0); got != 2 {
		t.Errorf("restored b = %d, want 2", got)
	}
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer s.Close()

	if err := s.SetString("k", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.GetString("k"); got != "v" {
		t.Errorf("GetString = %q, want v", got)
	}
	// Overwrite
	if err := s.SetString("k", "v2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.GetString("k"); got != "v2" {
		t.Errorf("GetString after overwrite = %q, want v2", got)
	}
	if err := s.SetInt("n", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.GetInt("n", 0); got != 5 {
		t.Errorf("GetInt = %d, want 5", got)
	}
	if !s.HasKey("n") {
		t.Error("HasKey did not find stored key")
	}
	if err := s.DeleteKey("n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.HasKey("n") {
		t.Error("key survived deletion")
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	if err := s.SetInt("ga_evt_count", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s2, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to reopen sqlite store: %v", err)
	}
	defer s2.Close()
	if got := s2.GetInt("ga_evt_count", 0); got != 3 {
		t.Errorf("count after reopen = %d, want 3", got)
	}
}

func TestPostgresStore(t *testing.T) {
	// This test requires a running PostgreSQL instance.
	// Set the DATABASE_URL environment variable for the connection string.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	s, err := NewPostgresStore(WithDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer s.Close()

	if err := s.SetString("pg_test_key", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.GetString("pg_test_key"); got != "v" {
		t.Errorf("GetString = %q, want v", got)
	}
	if err := s.DeleteKey("pg_test_key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	// This test requires a running Redis instance.
	// Set the REDIS_ADDR environment variable (host:port).
	addr := getenvOrSkip(t, "REDIS_ADDR")
	s, err := NewRedisStore(WithRedisAddr(addr), WithRedisPrefix("ganalytics_test:"))
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer s.Close()

	if err := s.SetInt("redis_test_key", 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.GetInt("redis_test_key", 0); got != 9 {
		t.Errorf("GetInt = %d, want 9", got)
	}
	if err := s.DeleteKey("redis_test_key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.HasKey("redis_test_key") {
		t.Error("key survived deletion")
	}
}

func getenvOrSkip(t *testing.T, key string) string {
	v := ""
	if val, ok := syscall.Getenv(key); ok {
		v = val
	}
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
