package cli

import (
	"os"
	"path/filepath"
	"time"
)

// Flags holds all command-line flag values
type Flags struct {
	// Global flags
	CfgFile string
	DBPath  string

	// translate flags
	From      string
	To        string
	BatchFile string
	Timeout   time.Duration
	Capture   string

	// history flags
	Archive    bool
	ArchiveDir string

	// models flags
	Remote bool

	// serve flags
	Addr string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		DBPath:     DefaultDBPath(),
		From:       "auto",
		To:         "en",
		Timeout:    60 * time.Second,
		Capture:    "settlement",
		ArchiveDir: DefaultStateDir(),
		Addr:       "127.0.0.1:8080",
	}
}

// DefaultStateDir is where polyglot keeps its database and archives
func DefaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "polyglot")
}

// DefaultDBPath is the default SQLite database location
func DefaultDBPath() string {
	return filepath.Join(DefaultStateDir(), "polyglot.db")
}
