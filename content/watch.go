package content

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last file event before
// rebuilding.
const DefaultDebounce = 500 * time.Millisecond

// Index holds the most recently loaded posts in memory, keyed by slug. It is
// rebuilt by Refresh, or continuously by Watch.
type Index struct {
	loader   *Loader
	logger   *slog.Logger
	debounce time.Duration

	mu     sync.RWMutex
	result *ListResult
	bySlug map[string]int
	built  time.Time
}

// NewIndex creates an index over loader. Call Refresh or Watch before use;
// Posts on an unbuilt index loads on demand.
func NewIndex(loader *Loader) *Index {
	return &Index{
		loader:   loader,
		logger:   loader.logger,
		debounce: DefaultDebounce,
	}
}

// Refresh reloads every post from disk and swaps the index in one step.
func (ix *Index) Refresh(ctx context.Context) error {
	result, err := ix.loader.LoadAll(ctx)
	if err != nil {
		return err
	}

	bySlug := make(map[string]int, len(result.Posts))
	for i, p := range result.Posts {
		// Later entries win on slug collisions.
		bySlug[p.Slug] = i
	}

	ix.mu.Lock()
	ix.result = result
	ix.bySlug = bySlug
	ix.built = ix.loader.now()
	ix.mu.Unlock()

	ix.logger.Info("content index rebuilt", "posts", len(result.Posts), "errors", len(result.Errors))
	return nil
}

// Posts implements Source. The returned result is shared and must not be
// modified.
func (ix *Index) Posts(ctx context.Context) (*ListResult, error) {
	ix.mu.RLock()
	result := ix.result
	ix.mu.RUnlock()
	if result != nil {
		return result, nil
	}

	if err := ix.Refresh(ctx); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.result, nil
}

// Get returns the indexed post with slug, or nil when none exists.
func (ix *Index) Get(slug string) *Post {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.result == nil {
		return nil
	}
	i, ok := ix.bySlug[slug]
	if !ok {
		return nil
	}
	post := ix.result.Posts[i]
	return &post
}

func (ix *Index) ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.result != nil
}

// BuiltAt returns when the index was last rebuilt.
func (ix *Index) BuiltAt() time.Time {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.built
}

// Watch rebuilds the index whenever files under the content directory
// change, until ctx is cancelled. An index that was never built is built
// first.
func (ix *Index) Watch(ctx context.Context) error {
	if !ix.ready() {
		if err := ix.Refresh(ctx); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// fsnotify is not recursive, so every directory is watched explicitly.
	if err := addTree(watcher, ix.loader.Dir()); err != nil {
		return err
	}
	ix.logger.Debug("watching content directory", "dir", ix.loader.Dir())

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			ix.logger.Debug("content change detected", "file", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := watcher.Add(event.Name); err != nil {
					ix.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
				}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(ix.debounce, func() {
				if err := ix.Refresh(ctx); err != nil {
					ix.logger.Error("failed to rebuild content index", "error", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ix.logger.Warn("file watcher error", "error", err)
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
