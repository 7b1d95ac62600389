package main

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/chazu/exprgraph/pkg/errwrap"
)

// watchFile calls fn every time the file at path is written or recreated,
// until ctx is done. The parent directory is watched, since editors often
// replace a file instead of writing it in place.
func watchFile(ctx context.Context, path string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errwrap.Wrapf(err, "can't create watcher")
	}
	defer watcher.Close()

	name := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(name)); err != nil {
		return errwrap.Wrapf(err, "can't watch %s", path)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue // a sibling changed
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fn()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errwrap.Wrapf(err, "watch %s", path)

		case <-ctx.Done():
			return nil
		}
	}
}
