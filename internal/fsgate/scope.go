package fsgate

import (
	"os"
	"path/filepath"
	"strings"
)

// Scope is the set of roots the gateway may touch. An empty Scope is unrestricted.
type Scope struct {
	roots []string
}

func NewScope(roots ...string) Scope {
	var s Scope
	for _, r := range roots {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if abs, err := filepath.Abs(r); err == nil {
			r = abs
		}
		r = filepath.Clean(r)
		if real, ok := realPath(r); ok {
			r = real
		}
		s.roots = append(s.roots, r)
	}
	return s
}

func (s Scope) Unrestricted() bool { return len(s.roots) == 0 }

func (s Scope) Roots() []string { return append([]string{}, s.roots...) }

// Resolve cleans path, makes it absolute, and checks it against the roots. The check
// follows symlinks, so a link inside a root cannot reach outside it; the returned path
// is still the lexical one.
func (s Scope) Resolve(path string) (string, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	abs = filepath.Clean(abs)
	if s.Unrestricted() {
		return abs, true
	}
	real, ok := realPath(abs)
	if !ok {
		return abs, false
	}
	for _, root := range s.roots {
		if within(root, real) {
			return abs, true
		}
	}
	return abs, false
}

// realPath resolves symlinks in path. A path that does not exist yet resolves through
// its nearest existing ancestor. A dangling symlink on the way fails, since its target
// could be created anywhere.
func realPath(path string) (string, bool) {
	cur := path
	var rest []string
	for {
		if _, err := os.Lstat(cur); err == nil {
			real, err := filepath.EvalSymlinks(cur)
			if err != nil {
				return "", false
			}
			for i := len(rest) - 1; i >= 0; i-- {
				real = filepath.Join(real, rest[i])
			}
			return real, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, true
		}
		rest = append(rest, filepath.Base(cur))
		cur = parent
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Abs cleans path and makes it absolute. Blank input stays blank so callers keep the
// empty-path no-op.
func Abs(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
