package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/logger"
)

// Verify interface compliance.
var (
	_ driven.SourceReader  = (*Connector)(nil)
	_ driven.SourceWatcher = (*Connector)(nil)
)

// Connector reads source documents from the local filesystem.
type Connector struct {
	log *logger.Logger

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates a filesystem connector.
func New(log *logger.Logger) *Connector {
	return &Connector{log: log.Named("filesystem")}
}

// Read returns the content of the file at path. file:// URIs are accepted.
func (c *Connector) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = ResolvePath(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReadSource, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrReadSource, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReadSource, err)
	}
	return content, nil
}

// List walks dir and returns the non-hidden files whose extension matches
// one of extensions, compared case-insensitively. An empty extension list
// matches every file.
func (c *Connector) List(ctx context.Context, dir string, extensions []string) ([]string, error) {
	dir = ResolvePath(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: root path error: %w", domain.ErrReadSource, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrReadSource, dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			c.log.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if matchesExtension(path, extensions) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// Watch emits a SourceChange for every create, write, remove or rename of a
// matching file under dir. New subdirectories are watched as they appear.
// The channel is closed when ctx is done or the connector is closed.
func (c *Connector) Watch(ctx context.Context, dir string, extensions []string) (<-chan driven.SourceChange, error) {
	dir = ResolvePath(dir)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("connector is closed")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	c.watchers = append(c.watchers, watcher)
	c.mu.Unlock()

	if err := c.addTree(watcher, dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	changes := make(chan driven.SourceChange)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				change := c.handleFsEvent(watcher, event, extensions)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.log.Warn("watch error", "error", err)
			}
		}
	}()

	return changes, nil
}

// addTree registers dir and its non-hidden subdirectories.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent converts an fsnotify event into a SourceChange, or nil when
// the event is irrelevant.
func (c *Connector) handleFsEvent(watcher *fsnotify.Watcher, event fsnotify.Event, extensions []string) *driven.SourceChange {
	// Hidden directories are never added, so only the name itself matters.
	if isHidden(filepath.Base(event.Name)) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !matchesExtension(event.Name, extensions) {
			return nil
		}
		return &driven.SourceChange{Path: event.Name, Removed: true}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) && watcher != nil {
				if err := c.addTree(watcher, event.Name); err != nil {
					c.log.Warn("cannot watch new directory", "path", event.Name, "error", err)
				}
			}
			return nil
		}
		if !matchesExtension(event.Name, extensions) {
			return nil
		}
		return &driven.SourceChange{Path: event.Name}
	}
	return nil
}

// Close stops every active watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for _, w := range c.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.watchers = nil
	return errors.Join(errs...)
}

func matchesExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
