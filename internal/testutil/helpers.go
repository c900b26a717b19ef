package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/polyglot/internal/storage"
)

// NewSQLiteBackend opens a SQLite backend in a temporary directory and
// closes it when the test ends
func NewSQLiteBackend(t *testing.T) *storage.SQLite {
	t.Helper()

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "polyglot.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite backend: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// SeedDocument stores a raw document under key
func SeedDocument(t *testing.T, backend storage.Backend, key, document string) {
	t.Helper()

	if err := backend.Set(context.Background(), key, []byte(document)); err != nil {
		t.Fatalf("Failed to seed %s: %v", key, err)
	}
}

// StoredDocument returns the raw document stored under key
func StoredDocument(t *testing.T, backend storage.Backend, key string) string {
	t.Helper()

	data, ok, err := backend.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", key, err)
	}
	if !ok {
		return ""
	}
	return string(data)
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain expected substring: %q", path, substring)
	}
}

// Eventually polls cond until it holds or the timeout expires
func Eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// CaptureStderr captures stderr while f runs
func CaptureStderr(t *testing.T, f func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}

	oldStderr := os.Stderr
	os.Stderr = w

	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	f()

	w.Close()
	os.Stderr = oldStderr
	return <-done
}
