package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stacknote/internal/model"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "state.sqlite"

// SQLiteSlot stores the workspace state as one row of the slots table in
// <Dir>/state.sqlite.
type SQLiteSlot struct {
	Dir    string
	Name   string
	Logger *slog.Logger
}

func (s SQLiteSlot) name() string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	return DefaultSlotName
}

func (s SQLiteSlot) Path() string {
	return filepath.Join(s.Dir, sqliteFileName)
}

func (s SQLiteSlot) open(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.Path())
	if err != nil {
		return nil, err
	}
	// WAL lets the CLI read while the TUI writes; busy_timeout avoids spurious "database is locked".
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS slots (
		name TEXT PRIMARY KEY,
		json TEXT NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s SQLiteSlot) Load(ctx context.Context) (model.WorkspaceState, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return model.Empty(), nil
	}
	db, err := s.open(ctx)
	if err != nil {
		return model.Empty(), err
	}
	defer db.Close()

	var raw string
	err = db.QueryRowContext(ctx, `SELECT json FROM slots WHERE name = ?`, s.name()).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Empty(), nil
		}
		return model.Empty(), err
	}
	st, err := decodeState(s.name(), []byte(raw))
	if err != nil {
		return recoverDecode(s.Logger, st, err), nil
	}
	return st, nil
}

func (s SQLiteSlot) Save(ctx context.Context, st model.WorkspaceState) error {
	if strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	b, err := encodeState(st)
	if err != nil {
		return err
	}
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO slots(name, json, updated_at_unixms) VALUES(?, ?, ?)`,
		s.name(), string(b), time.Now().UTC().UnixMilli())
	return err
}
