package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"stacknote/internal/model"
)

func putRawSQLite(t *testing.T, s SQLiteSlot, raw string) {
	t.Helper()
	ctx := context.Background()
	db, err := s.open(ctx)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO slots(name, json, updated_at_unixms) VALUES(?, ?, ?)`,
		s.name(), raw, time.Now().UnixMilli()); err != nil {
		t.Fatalf("put raw: %v", err)
	}
}

func sampleState() model.WorkspaceState {
	return model.WorkspaceState{
		OpenPaths:        []string{"/notes/a.txt", "/notes", "/tmp/b.md"},
		ProjectPath:      "/notes",
		DirectoryPath:    "/tmp",
		SidebarVisible:   false,
		InfoPanelVisible: true,
		ShowAddItem:      model.AddItemFolder,
		ScrollMode:       true,
	}
}

func slotsUnderTest(t *testing.T) map[string]Slot {
	t.Helper()
	return map[string]Slot{
		"json":   FileSlot{Dir: t.TempDir()},
		"sqlite": SQLiteSlot{Dir: t.TempDir()},
	}
}

func TestSlot_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	for name, s := range slotsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Missing slot => default state.
			st0, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !model.Equal(st0, model.Empty()) {
				t.Fatalf("expected default state; got %#v", st0)
			}

			want := sampleState()
			if err := s.Save(ctx, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load (after save): %v", err)
			}
			if !reflect.DeepEqual(want, got) {
				t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
			}

			// Save replaces, never merges.
			next := model.Empty()
			next.OpenPaths = []string{"/only.txt"}
			if err := s.Save(ctx, next); err != nil {
				t.Fatalf("Save (replace): %v", err)
			}
			got, err = s.Load(ctx)
			if err != nil {
				t.Fatalf("Load (after replace): %v", err)
			}
			if !model.Equal(next, got) {
				t.Fatalf("expected replaced state; got %#v", got)
			}
		})
	}
}

func TestFileSlot_CorruptFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := FileSlot{Dir: dir}
	for _, raw := range []string{"{not json", `{"version": 99}`, `[1,2,3]`, `{"openPaths": "nope"}`} {
		if err := os.WriteFile(s.Path(), []byte(raw), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		st, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("Load(%q) returned error: %v", raw, err)
		}
		if !model.Equal(st, model.Empty()) {
			t.Fatalf("Load(%q): expected empty default, got %#v", raw, st)
		}
	}
}

func TestSQLiteSlot_CorruptFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	s := SQLiteSlot{Dir: t.TempDir()}
	putRawSQLite(t, s, "garbage")
	st, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !model.Equal(st, model.Empty()) {
		t.Fatalf("expected empty default, got %#v", st)
	}
}

func TestDecodeState_DefaultsAndForwardCompat(t *testing.T) {
	t.Parallel()

	raw := `{
  "openPaths": ["/a", "", "/b", "/a"],
  "scrollMode": true,
  "showAddItem": "file",
  "someFutureField": {"x": 1}
}`
	st, err := decodeState("t", []byte(raw))
	if err != nil {
		t.Fatalf("decodeState: %v", err)
	}
	if !reflect.DeepEqual(st.OpenPaths, []string{"/b", "/a"}) {
		t.Fatalf("expected blanks dropped and duplicates collapsed to last position, got %v", st.OpenPaths)
	}
	if !st.SidebarVisible {
		t.Fatalf("missing sidebarVisible should default to true")
	}
	if !st.ScrollMode || st.ShowAddItem != model.AddItemFile {
		t.Fatalf("present fields not decoded: %#v", st)
	}

	st, err = decodeState("t", []byte(`{"openPaths": null}`))
	if err != nil {
		t.Fatalf("decodeState(null paths): %v", err)
	}
	if st.OpenPaths == nil {
		t.Fatalf("expected non-nil OpenPaths")
	}
}

func TestDecodeState_ReportsDecodeError(t *testing.T) {
	t.Parallel()

	_, err := decodeState("ws", []byte("{"))
	var de *DecodeError
	if !errors.As(err, &de) || de.Slot != "ws" {
		t.Fatalf("expected *DecodeError for slot ws, got %v", err)
	}
}

type recordingSlot struct {
	mu    sync.Mutex
	saved []model.WorkspaceState
	delay time.Duration
}

func (r *recordingSlot) Load(context.Context) (model.WorkspaceState, error) {
	return model.Empty(), nil
}

func (r *recordingSlot) Save(_ context.Context, st model.WorkspaceState) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	r.saved = append(r.saved, st)
	r.mu.Unlock()
	return nil
}

func TestAsyncSlot_LastWriteWins(t *testing.T) {
	t.Parallel()

	rec := &recordingSlot{delay: 2 * time.Millisecond}
	a := NewAsyncSlot(rec, nil)
	ctx := context.Background()

	var last model.WorkspaceState
	for i := 0; i < 50; i++ {
		st := model.Empty()
		st.OpenPaths = []string{filepath.Join("/n", string(rune('a'+i%26)), time.Duration(i).String())}
		last = st
		if err := a.Save(ctx, st); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.saved) == 0 {
		t.Fatalf("expected at least one write")
	}
	if !model.Equal(rec.saved[len(rec.saved)-1], last) {
		t.Fatalf("last write does not reflect last save: %#v", rec.saved[len(rec.saved)-1])
	}
}

func TestAsyncSlot_CloseRejectsSaves(t *testing.T) {
	t.Parallel()

	a := NewAsyncSlot(&recordingSlot{}, nil)
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Save(context.Background(), model.Empty()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(Options{Dir: dir, Backend: "SQLite"})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	if _, ok := s.(SQLiteSlot); !ok {
		t.Fatalf("expected SQLiteSlot, got %T", s)
	}
	s, err = Open(Options{Dir: dir, Async: true})
	if err != nil {
		t.Fatalf("Open async: %v", err)
	}
	if _, ok := s.(*AsyncSlot); !ok {
		t.Fatalf("expected *AsyncSlot, got %T", s)
	}
	if _, err := Open(Options{Dir: dir, Backend: "redis"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STACKNOTE_CONFIG_DIR", dir)
	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if got != dir {
		t.Fatalf("expected %q, got %q", dir, got)
	}
}
