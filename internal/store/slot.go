package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stacknote/internal/logging"
	"stacknote/internal/model"
)

const (
	slotVersion     = 1
	DefaultSlotName = "workspace"
)

// Slot is a single named durable record holding the serialized workspace state.
//
// Load is best-effort: a missing or undecodable slot yields model.Empty() and a nil
// error. A non-nil error means the backend itself could not be reached; the
// returned state is still usable (model.Empty()).
//
// Save replaces the prior contents entirely.
type Slot interface {
	Load(ctx context.Context) (model.WorkspaceState, error)
	Save(ctx context.Context, st model.WorkspaceState) error
}

// DecodeError reports a corrupt slot. Slots log it and fall back to the default state.
type DecodeError struct {
	Slot string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode slot %q: %v", e.Slot, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var ErrClosed = errors.New("slot closed")

type slotDoc struct {
	Version int `json:"version"`
	model.WorkspaceState
}

func encodeState(st model.WorkspaceState) ([]byte, error) {
	doc := slotDoc{Version: slotVersion, WorkspaceState: st.Clone()}
	if doc.OpenPaths == nil {
		doc.OpenPaths = []string{}
	}
	doc.ShowAddItem = doc.ShowAddItem.Normalize()
	return json.MarshalIndent(doc, "", "  ")
}

// decodeState seeds the document with model.Empty() so fields missing from the
// stored JSON keep their defaults. Unknown fields are ignored.
func decodeState(name string, b []byte) (model.WorkspaceState, error) {
	if len(strings.TrimSpace(string(b))) == 0 {
		return model.Empty(), nil
	}
	doc := slotDoc{WorkspaceState: model.Empty()}
	if err := json.Unmarshal(b, &doc); err != nil {
		return model.Empty(), &DecodeError{Slot: name, Err: err}
	}
	if doc.Version > slotVersion {
		return model.Empty(), &DecodeError{Slot: name, Err: fmt.Errorf("unsupported version %d", doc.Version)}
	}
	st := doc.WorkspaceState
	st.OpenPaths = uniquePaths(st.OpenPaths)
	st.ShowAddItem = st.ShowAddItem.Normalize()
	return st, nil
}

// uniquePaths drops blanks and keeps the last occurrence of each path, matching the
// open policy where re-opening moves a path to the end.
func uniquePaths(paths []string) []string {
	last := make(map[string]int, len(paths))
	for i, p := range paths {
		last[p] = i
	}
	out := make([]string, 0, len(paths))
	for i, p := range paths {
		if strings.TrimSpace(p) == "" || last[p] != i {
			continue
		}
		out = append(out, p)
	}
	return out
}

func recoverDecode(logger *slog.Logger, st model.WorkspaceState, err error) model.WorkspaceState {
	var de *DecodeError
	if errors.As(err, &de) {
		logging.OrDiscard(logger).Warn("persisted workspace unreadable; starting empty", "slot", de.Slot, "err", de.Err)
		return model.Empty()
	}
	return st
}
