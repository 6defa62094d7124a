// Package watch reports on-disk changes to open paths so panels can reload.
//
// Files are watched through their parent directory rather than their own inode: saves
// replace files by rename, which would otherwise end a per-file watch after the first
// write. Events are filtered back down to the requested paths and their direct
// children.
package watch

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"stacknote/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const defaultBuffer = 64

type Change struct {
	Path string
	Op   fsnotify.Op
}

func (c Change) Removed() bool {
	return c.Op.Has(fsnotify.Remove) || c.Op.Has(fsnotify.Rename)
}

type Watcher struct {
	fw     *fsnotify.Watcher
	logger *slog.Logger
	out    chan Change

	mu sync.Mutex
	// requested maps each requested path to the directory watched on its behalf.
	requested map[string]string
	refs      map[string]int
	closed    bool

	wg sync.WaitGroup
}

func New(logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:        fw,
		logger:    logging.OrDiscard(logger),
		out:       make(chan Change, defaultBuffer),
		requested: map[string]string{},
		refs:      map[string]int{},
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) Events() <-chan Change { return w.out }

// Watch starts watching path. A directory is watched itself; anything else is watched
// through the nearest existing directory above it, so creation, replacement and
// removal are all observed.
func (w *Watcher) Watch(path string) error {
	clean, ok := cleanPath(path)
	if !ok {
		return errors.New("watch: empty path")
	}
	target := watchTarget(clean)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("watch: closed")
	}
	if _, ok := w.requested[clean]; ok {
		return nil
	}
	if err := w.addRefLocked(target); err != nil {
		return err
	}
	w.requested[clean] = target
	w.logger.Debug("watching", "path", clean, "target", target)
	return nil
}

func (w *Watcher) Unwatch(path string) error {
	clean, ok := cleanPath(path)
	if !ok {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	target, ok := w.requested[clean]
	if !ok {
		return nil
	}
	delete(w.requested, clean)
	return w.dropRefLocked(target)
}

func (w *Watcher) addRefLocked(target string) error {
	if w.refs[target] == 0 {
		if err := w.fw.Add(target); err != nil {
			return err
		}
	}
	w.refs[target]++
	return nil
}

func (w *Watcher) dropRefLocked(target string) error {
	w.refs[target]--
	if w.refs[target] > 0 {
		return nil
	}
	delete(w.refs, target)
	if w.closed {
		return nil
	}
	if err := w.fw.Remove(target); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return err
	}
	return nil
}

// Sync makes the watched set equal to paths.
func (w *Watcher) Sync(paths []string) {
	want := map[string]bool{}
	for _, p := range paths {
		if clean, ok := cleanPath(p); ok {
			want[clean] = true
		}
	}

	w.mu.Lock()
	var drop []string
	for p := range w.requested {
		if !want[p] {
			drop = append(drop, p)
		}
	}
	w.mu.Unlock()

	for _, p := range drop {
		if err := w.Unwatch(p); err != nil {
			w.logger.Warn("unwatch failed", "path", p, "err", err)
		}
	}
	for p := range want {
		if err := w.Watch(p); err != nil {
			w.logger.Warn("watch failed", "path", p, "err", err)
		}
	}
}

// rearm moves each requested path to the directory it should be watched through now;
// directories appearing or disappearing change that answer.
func (w *Watcher) rearm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for p, cur := range w.requested {
		next := watchTarget(p)
		if next == cur {
			continue
		}
		// Add before drop so a shared target never loses its kernel watch in between.
		if err := w.addRefLocked(next); err != nil {
			w.logger.Warn("rearm failed", "path", p, "target", next, "err", err)
			continue
		}
		if err := w.dropRefLocked(cur); err != nil {
			w.logger.Debug("drop stale watch", "target", cur, "err", err)
		}
		w.requested[p] = next
		w.logger.Debug("rearmed", "path", p, "target", next)
	}
}

// wanted reports whether an event on name concerns a requested path: the path itself
// or a direct child of a requested directory.
func (w *Watcher) wanted(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.requested[name]; ok {
		return true
	}
	_, ok := w.requested[filepath.Dir(name)]
	return ok
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fw.Close()
	w.wg.Wait()
	close(w.out)
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				w.rearm()
			}
			if !w.wanted(ev.Name) {
				continue
			}
			select {
			case w.out <- Change{Path: ev.Name, Op: ev.Op}:
			default:
				w.logger.Warn("watch event dropped; consumer too slow", "path", ev.Name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// watchTarget is the directory watched for path: path itself when it is a directory,
// else the nearest existing directory above it.
func watchTarget(path string) string {
	if dirExists(path) {
		return path
	}
	return NearestExisting(filepath.Dir(path))
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// NearestExisting walks up from path until it finds something that exists.
func NearestExisting(path string) string {
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}

func cleanPath(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	clean := filepath.Clean(path)
	if clean == "" || clean == "." {
		return "", false
	}
	return clean, true
}
