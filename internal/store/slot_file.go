package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stacknote/internal/fsgate"
	"stacknote/internal/model"
)

// FileSlot stores the workspace state as <Dir>/<Name>.json.
type FileSlot struct {
	Dir    string
	Name   string
	Logger *slog.Logger
}

func (s FileSlot) name() string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	return DefaultSlotName
}

func (s FileSlot) Path() string {
	return filepath.Join(s.Dir, s.name()+".json")
}

func (s FileSlot) Load(ctx context.Context) (model.WorkspaceState, error) {
	if err := ctx.Err(); err != nil {
		return model.Empty(), err
	}
	if strings.TrimSpace(s.Dir) == "" {
		return model.Empty(), nil
	}
	b, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Empty(), nil
		}
		return model.Empty(), err
	}
	st, err := decodeState(s.name(), b)
	if err != nil {
		return recoverDecode(s.Logger, st, err), nil
	}
	return st, nil
}

func (s FileSlot) Save(ctx context.Context, st model.WorkspaceState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	b, err := encodeState(st)
	if err != nil {
		return err
	}
	return fsgate.WriteFileAtomic(s.Path(), b, 0o644)
}
