package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/snonux/polyglot/internal/history"
)

// ArchiveHistory writes records to <dir>/archive/history-<timestamp>.json
// and returns the path of the written file
func ArchiveHistory(records []history.Record, dir string) (string, error) {
	archiveDir := filepath.Join(dir, "archive")

	// Create archive directory if it doesn't exist
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if records == nil {
		records = []history.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}

	now := time.Now()
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("history-%s.json", now.Format("20060102-150405")))

	// Check if archive already exists (unlikely but possible)
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("history-%s.json", now.Format("20060102-150405.000000")))
	}

	if err := os.WriteFile(archivePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history archive: %w", err)
	}

	return archivePath, nil
}

// ReadArchive loads records from an archive file
func ReadArchive(path string) ([]history.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history archive: %w", err)
	}

	var records []history.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history archive: %w", err)
	}
	return records, nil
}
