package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// ConfigDir is ~/.stacknote unless STACKNOTE_CONFIG_DIR overrides it (tests use the override
// to stay out of the real home directory).
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("STACKNOTE_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".stacknote"), nil
}

type Options struct {
	Dir     string
	Name    string
	Backend string
	// Async wraps the slot in an AsyncSlot.
	Async  bool
	Logger *slog.Logger
}

// Open builds the configured slot. Callers that asked for Async should Close the
// returned *AsyncSlot on shutdown.
func Open(opts Options) (Slot, error) {
	var slot Slot
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendJSON:
		slot = FileSlot{Dir: opts.Dir, Name: opts.Name, Logger: opts.Logger}
	case BackendSQLite:
		slot = SQLiteSlot{Dir: opts.Dir, Name: opts.Name, Logger: opts.Logger}
	default:
		return nil, fmt.Errorf("unknown slot backend: %s", opts.Backend)
	}
	if opts.Async {
		return NewAsyncSlot(slot, opts.Logger), nil
	}
	return slot, nil
}
