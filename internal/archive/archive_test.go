package archive

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/polyglot/internal/history"
)

func TestArchiveHistory(t *testing.T) {
	tmpDir := t.TempDir()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []history.Record{
		history.NewRecord("auto", "fr", "hello", "bonjour", at.Add(time.Second)),
		history.NewRecord("en", "de", "cat", "Katze", at),
	}

	path, err := ArchiveHistory(records, tmpDir)
	if err != nil {
		t.Fatalf("ArchiveHistory failed: %v", err)
	}

	if filepath.Dir(path) != filepath.Join(tmpDir, "archive") {
		t.Errorf("Archive written to unexpected directory: %s", path)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "history-") || !strings.HasSuffix(name, ".json") {
		t.Errorf("Unexpected archive name: %s", name)
	}

	got, err := ReadArchive(path)
	if err != nil {
		t.Fatalf("ReadArchive failed: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("ReadArchive() = %+v, want %+v", got, records)
	}
}

func TestArchiveHistory_EmptyList(t *testing.T) {
	path, err := ArchiveHistory(nil, t.TempDir())
	if err != nil {
		t.Fatalf("ArchiveHistory failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("Expected empty JSON list, got %s", data)
	}
}

func TestArchiveHistory_UniqueNames(t *testing.T) {
	tmpDir := t.TempDir()

	first, err := ArchiveHistory(nil, tmpDir)
	if err != nil {
		t.Fatalf("ArchiveHistory failed: %v", err)
	}
	second, err := ArchiveHistory(nil, tmpDir)
	if err != nil {
		t.Fatalf("ArchiveHistory failed: %v", err)
	}

	if first == second {
		t.Errorf("Expected distinct archive files, both are %s", first)
	}
}

func TestArchiveHistory_UnwritableDir(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if _, err := ArchiveHistory(nil, blocker); err == nil {
		t.Error("Expected error when the target is a file")
	}
}

func TestReadArchive_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if _, err := ReadArchive(path); err == nil {
		t.Error("Expected error for invalid archive")
	}
}
