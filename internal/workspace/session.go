// Package workspace owns the live workspace state.
//
// The pure functions in mutate.go define every state transition. Session is the one
// synchronized handle the UI and CLI go through: it performs the gateway I/O an
// action needs, applies the transition only once that I/O has succeeded, and
// persists the result. Mutations are applied under a single lock so their effects
// land in completion order.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"stacknote/internal/fsgate"
	"stacknote/internal/logging"
	"stacknote/internal/model"
	"stacknote/internal/store"
)

type Session struct {
	slot   store.Slot
	gate   fsgate.Gateway
	logger *slog.Logger

	mu        sync.Mutex
	state     model.WorkspaceState
	listeners []func(model.WorkspaceState)
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession seeds the state from slot. Load failures are logged and the session
// starts from model.Empty().
func NewSession(ctx context.Context, slot store.Slot, gate fsgate.Gateway, opts ...Option) *Session {
	s := &Session{slot: slot, gate: gate}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)

	st := model.Empty()
	if slot != nil {
		loaded, err := slot.Load(ctx)
		if err != nil {
			s.logger.Warn("load workspace failed; starting empty", "err", err)
		} else {
			st = loaded
		}
	}
	s.state = st
	return s
}

func (s *Session) Snapshot() model.WorkspaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// OnChange registers fn to be called (outside the lock) after each applied mutation.
func (s *Session) OnChange(fn func(model.WorkspaceState)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// apply runs a transition, persists, and notifies. Persist failures are logged only;
// the live state is kept.
func (s *Session) apply(ctx context.Context, op string, fn func(model.WorkspaceState) model.WorkspaceState) model.WorkspaceState {
	s.mu.Lock()
	next := fn(s.state)
	s.state = next
	if s.slot != nil {
		if err := s.slot.Save(ctx, next); err != nil {
			s.logger.Error("persist workspace failed", "op", op, "err", err)
		}
	}
	listeners := append([]func(model.WorkspaceState){}, s.listeners...)
	out := next.Clone()
	s.mu.Unlock()

	s.logger.Debug("workspace mutated", "op", op, "open", len(out.OpenPaths))
	for _, fn := range listeners {
		fn(out.Clone())
	}
	return out
}

// OpenFile reads path through the gateway and, on success, opens it. On failure the
// state is unchanged and the gateway error is returned.
func (s *Session) OpenFile(ctx context.Context, path string) (model.Document, error) {
	if strings.TrimSpace(path) == "" {
		return model.Document{}, nil
	}
	b, err := s.gate.ReadFile(ctx, path)
	if err != nil {
		s.logger.Info("open file rejected", "path", path, "err", err)
		return model.Document{}, err
	}
	s.apply(ctx, "openFile", func(st model.WorkspaceState) model.WorkspaceState {
		return OpenFile(st, path)
	})
	return model.Document{Path: path, Content: string(b)}, nil
}

// OpenDirectory lists path through the gateway and, on success, opens it and assigns
// the root selected by target.
func (s *Session) OpenDirectory(ctx context.Context, path string, target DirTarget) ([]model.Entry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	entries, err := s.gate.ListDirectory(ctx, path)
	if err != nil {
		s.logger.Info("open directory rejected", "path", path, "err", err)
		return nil, err
	}
	s.apply(ctx, "openDirectory", func(st model.WorkspaceState) model.WorkspaceState {
		return OpenDirectory(st, path, target)
	})
	return entries, nil
}

// SaveFile writes content through the gateway. It does not change the state.
func (s *Session) SaveFile(ctx context.Context, path, content string) error {
	if err := s.gate.WriteFile(ctx, path, []byte(content)); err != nil {
		s.logger.Info("save file failed", "path", path, "err", err)
		return err
	}
	return nil
}

// ReadFile re-reads an open document without touching the state, for reloads after
// an external change.
func (s *Session) ReadFile(ctx context.Context, path string) (model.Document, error) {
	b, err := s.gate.ReadFile(ctx, path)
	if err != nil {
		return model.Document{}, err
	}
	return model.Document{Path: path, Content: string(b)}, nil
}

// CreateItem creates name inside dir as the kind mode selects and closes the add-item
// form. New files are opened as panels; new folders are not. It returns the created path.
func (s *Session) CreateItem(ctx context.Context, dir, name string, mode model.AddItemMode) (string, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(dir) == "" || name == "" {
		return "", nil
	}
	path := filepath.Join(dir, name)
	switch mode.Normalize() {
	case model.AddItemFile:
		if err := s.gate.CreateFile(ctx, path); err != nil {
			s.logger.Info("create file failed", "path", path, "err", err)
			return "", err
		}
		s.apply(ctx, "createFile", func(st model.WorkspaceState) model.WorkspaceState {
			return SetShowAddItem(OpenFile(st, path), model.AddItemOff)
		})
	case model.AddItemFolder:
		if err := s.gate.MakeDir(ctx, path); err != nil {
			s.logger.Info("create folder failed", "path", path, "err", err)
			return "", err
		}
		s.apply(ctx, "createFolder", func(st model.WorkspaceState) model.WorkspaceState {
			return SetShowAddItem(st, model.AddItemOff)
		})
	default:
		return "", errors.New("add-item form is closed")
	}
	return path, nil
}

// ListDirectory is a read-only gateway pass-through for sidebar browsing.
func (s *Session) ListDirectory(ctx context.Context, path string) ([]model.Entry, error) {
	return s.gate.ListDirectory(ctx, path)
}

func (s *Session) IsDir(ctx context.Context, path string) bool {
	return s.gate.IsDir(ctx, path)
}

// ErrNotOpen is returned when an action names a path that has no panel.
var ErrNotOpen = errors.New("not an open panel")

// CollapseTo closes every panel except path, which must already be open. An empty
// path is a no-op.
func (s *Session) CollapseTo(ctx context.Context, path string) (model.WorkspaceState, error) {
	if strings.TrimSpace(path) == "" {
		return s.Snapshot(), nil
	}
	if !slices.Contains(s.Snapshot().OpenPaths, path) {
		s.logger.Info("collapse rejected", "path", path)
		return s.Snapshot(), fmt.Errorf("collapse %s: %w", path, ErrNotOpen)
	}
	return s.apply(ctx, "collapseTo", func(st model.WorkspaceState) model.WorkspaceState {
		if !slices.Contains(st.OpenPaths, path) {
			// Closed by a concurrent action since the check.
			return st
		}
		return CollapseTo(st, path)
	}), nil
}

func (s *Session) ToggleSidebar(ctx context.Context) model.WorkspaceState {
	return s.apply(ctx, "toggleSidebar", ToggleSidebar)
}

func (s *Session) ToggleInfoPanel(ctx context.Context) model.WorkspaceState {
	return s.apply(ctx, "toggleInfoPanel", ToggleInfoPanel)
}

func (s *Session) ToggleScrollMode(ctx context.Context) model.WorkspaceState {
	return s.apply(ctx, "toggleScrollMode", ToggleScrollMode)
}

func (s *Session) SetProjectPath(ctx context.Context, path string) model.WorkspaceState {
	return s.apply(ctx, "setProjectPath", func(st model.WorkspaceState) model.WorkspaceState {
		return SetProjectPath(st, path)
	})
}

func (s *Session) SetDirectoryPath(ctx context.Context, path string) model.WorkspaceState {
	return s.apply(ctx, "setDirectoryPath", func(st model.WorkspaceState) model.WorkspaceState {
		return SetDirectoryPath(st, path)
	})
}

func (s *Session) SetShowAddItem(ctx context.Context, mode model.AddItemMode) model.WorkspaceState {
	return s.apply(ctx, "setShowAddItem", func(st model.WorkspaceState) model.WorkspaceState {
		return SetShowAddItem(st, mode)
	})
}

// Reset replaces the whole state with model.Empty().
func (s *Session) Reset(ctx context.Context) model.WorkspaceState {
	return s.apply(ctx, "reset", func(model.WorkspaceState) model.WorkspaceState {
		return model.Empty()
	})
}
