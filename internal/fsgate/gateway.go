// Package fsgate is the scoped file-system gateway used by the workspace.
//
// Every read, write, and listing goes through a Gateway so the permitted path
// scope is enforced in one place and failures come back as a *PathError of a
// distinguishable kind (ErrNotFound, ErrPermissionDenied, ErrIO).
package fsgate

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"stacknote/internal/model"
)

// previewChars is how much of each file a directory listing includes.
const previewChars = 100

type Gateway interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	ListDirectory(ctx context.Context, path string) ([]model.Entry, error)
	ListPaths(ctx context.Context, path string, deep bool) ([]string, error)
	IsDir(ctx context.Context, path string) bool
	CreateFile(ctx context.Context, path string) error
	MakeDir(ctx context.Context, path string) error
}

// OSGateway implements Gateway on the local disk.
type OSGateway struct {
	scope Scope
}

func New(scope Scope) *OSGateway {
	return &OSGateway{scope: scope}
}

func (g *OSGateway) Scope() Scope { return g.scope }

func (g *OSGateway) resolve(op, path string) (string, error) {
	abs, ok := g.scope.Resolve(path)
	if abs == "" {
		return "", &PathError{Op: op, Path: path, Kind: ErrNotFound}
	}
	if !ok {
		return "", &PathError{Op: op, Path: abs, Kind: ErrPermissionDenied}
	}
	return abs, nil
}

func (g *OSGateway) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := g.resolve("read", path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, wrap("read", abs, err)
	}
	if info.IsDir() {
		return nil, &PathError{Op: "read", Path: abs, Kind: ErrIO, Err: errors.New("is a directory")}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, wrap("read", abs, err)
	}
	return b, nil
}

// WriteFile replaces path atomically (temp file in the same directory + rename),
// so a failed write never leaves a truncated file behind.
func (g *OSGateway) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := g.resolve("write", path)
	if err != nil {
		return err
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return &PathError{Op: "write", Path: abs, Kind: ErrIO, Err: errors.New("is a directory")}
		}
		perm = info.Mode().Perm()
	}
	if err := WriteFileAtomic(abs, data, perm); err != nil {
		return wrap("write", abs, err)
	}
	return nil
}

func (g *OSGateway) ListDirectory(ctx context.Context, path string) ([]model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := g.resolve("list", path)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, wrap("list", abs, err)
	}

	var dirs, files []model.Entry
	for _, de := range dirEntries {
		if hidden(de.Name()) {
			continue
		}
		p := filepath.Join(abs, de.Name())
		if isDirEntry(de, p) {
			dirs = append(dirs, model.Entry{
				Kind: model.EntryKindDirectory,
				Directory: &model.DirEntry{
					Name:          de.Name(),
					Path:          p,
					ChildrenCount: countVisible(p),
				},
			})
			continue
		}
		files = append(files, model.Entry{
			Kind: model.EntryKindFile,
			File: &model.FileEntry{
				Name:    de.Name(),
				Path:    p,
				Preview: preview(p),
			},
		})
	}
	byName := func(list []model.Entry) {
		sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	}
	byName(dirs)
	byName(files)
	return append(dirs, files...), nil
}

// ListPaths returns every path under root. With deep=false only the top level is
// listed; with deep=true directories are replaced by their contents.
func (g *OSGateway) ListPaths(ctx context.Context, path string, deep bool) ([]string, error) {
	abs, err := g.resolve("list", path)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := listPaths(ctx, abs, deep, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func listPaths(ctx context.Context, dir string, deep bool, out *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return wrap("list", dir, err)
	}
	for _, de := range entries {
		p := filepath.Join(dir, de.Name())
		if deep && isDirEntry(de, p) {
			if err := listPaths(ctx, p, deep, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, p)
	}
	return nil
}

// IsDir is false for paths that are missing, out of scope, or files.
func (g *OSGateway) IsDir(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}
	abs, ok := g.scope.Resolve(path)
	if !ok {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}

// CreateFile creates an empty file. An existing path fails with an error matching
// fs.ErrExist.
func (g *OSGateway) CreateFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := g.resolve("create", path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return wrap("create", abs, err)
	}
	if err := f.Close(); err != nil {
		return wrap("create", abs, err)
	}
	return nil
}

// MakeDir creates path and any missing parents inside the scope.
func (g *OSGateway) MakeDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := g.resolve("mkdir", path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return wrap("mkdir", abs, err)
	}
	return nil
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }

func isDirEntry(de fs.DirEntry, path string) bool {
	if de.IsDir() {
		return true
	}
	if de.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
	return false
}

func countVisible(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !hidden(e.Name()) {
			n++
		}
	}
	return n
}

func preview(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, previewChars*utf8.UTFMax)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ""
	}
	b := buf[:n]
	var sb strings.Builder
	for i := 0; i < previewChars && len(b) > 0; i++ {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 && !utf8.FullRune(b) {
			break
		}
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}
