package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

// SetWatcher enables Watch. Without a watcher Watch returns an error.
func (s *IndexService) SetWatcher(w driven.SourceWatcher) {
	s.watcher = w
}

// Watch re-indexes changed files under dir until ctx is done.
// Created and modified files are indexed with Force so that edits replace
// the stored tree. Removed files have their document deleted.
func (s *IndexService) Watch(ctx context.Context, dir string, opts driving.IndexOptions, report func(driving.WatchEvent)) error {
	if s.watcher == nil {
		return errors.New("watch mode is not available")
	}
	if report == nil {
		report = func(driving.WatchEvent) {}
	}

	changes, err := s.watcher.Watch(ctx, dir, s.config.Extensions)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.log.Info("watching for changes", "dir", dir)

	opts.Force = true
	for change := range changes {
		if change.Removed {
			err := s.forget(ctx, change.Path)
			report(driving.WatchEvent{Path: change.Path, Removed: true, Err: err})
			continue
		}
		res, err := s.IndexDocument(ctx, change.Path, opts)
		if err != nil {
			s.log.Warn("re-index failed", "path", change.Path, "error", err)
		}
		report(driving.WatchEvent{Path: change.Path, Result: res, Err: err})
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// forget deletes the document indexed from path, if any.
// A document with the same ID indexed from another file is left alone.
func (s *IndexService) forget(ctx context.Context, path string) error {
	docID, err := domain.DocumentIDFromFilename(path)
	if err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, docID)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.store.GetDocument(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading document %s: %w", docID, err)
	}
	if doc.SourceFile != filepath.Base(path) {
		return nil
	}
	if err := s.purge(ctx, docID); err != nil {
		return err
	}
	s.log.Info("removed document", "document", docID, "path", path)
	return nil
}
