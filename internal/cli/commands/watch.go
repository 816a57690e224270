package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is how long the workspace must stay quiet before a re-run.
const watchDebounce = 500 * time.Millisecond

// watchWorkspace runs fn once, then again after every burst of writes to
// path, until ctx is canceled. SQLite and DuckDB sidecar files (-wal,
// -journal, -shm, .wal) count as writes to the workspace.
func watchWorkspace(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, fn func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors and GIS tools replace files, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fn(ctx)

	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isWorkspaceFile(filepath.Base(event.Name), base) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				logger.Debug("workspace changed, re-running", "path", event.Name)
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			fn(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

var sidecarSuffixes = []string{"-wal", "-journal", "-shm", ".wal"}

// isWorkspaceFile reports whether name is the workspace file base or one of
// its sidecars. Reports written next to the workspace do not match.
func isWorkspaceFile(name, base string) bool {
	if name == base {
		return true
	}
	rest, ok := strings.CutPrefix(name, base)
	return ok && slices.Contains(sidecarSuffixes, rest)
}
