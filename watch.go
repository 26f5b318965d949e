package nano

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch drops cached templates when their files change, so the next render
// reads them again, and calls onChange with the template path that changed.
// It blocks until ctx is done. Only engines created by NewEngine can be watched.
func (e *Engine) Watch(ctx context.Context, onChange func(name string)) error {
	if e.dir == "" {
		return fmt.Errorf("%w: engine has no template directory to watch", ErrInvalidPath)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addRecursive(w, e.dir); err != nil {
		return err
	}
	e.logger.Debug("nano: watching templates", "dir", e.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", e.dir, err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addRecursive(w, ev.Name); err != nil {
						return err
					}
					continue
				}
			}

			rel, err := filepath.Rel(e.dir, ev.Name)
			if err != nil {
				continue
			}
			name := normalizeName(rel)

			e.mu.Lock()
			dropped := e.loader.invalidate(name)
			e.mu.Unlock()
			e.logger.Debug("nano: template changed", "template", name, "op", ev.Op.String(), "invalidated", dropped)

			if onChange != nil {
				onChange(name)
			}
		}
	}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
