package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sampurna/itsupport/internal/documents"
)

// SourceStore can replace every chunk of one source file.
type SourceStore interface {
	documents.Writer
	DeleteSource(ctx context.Context, source string) (int64, error)
}

// Watcher re-ingests markdown files under root when they change.
type Watcher struct {
	root      string
	chunkSize int
	seeder    *Seeder
	store     SourceStore
	debounce  time.Duration
}

func NewWatcher(root string, chunkSize int, seeder *Seeder, store SourceStore) *Watcher {
	return &Watcher{root: root, chunkSize: chunkSize, seeder: seeder, store: store, debounce: 500 * time.Millisecond}
}

// Run blocks until ctx is cancelled. Changes are applied once the tree has
// been quiet for the debounce period.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := addTree(fw, w.root); err != nil {
		return err
	}
	slog.Info("watching markdown sources", "root", w.root)

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(fw, event.Name); err != nil {
						slog.Warn("watching new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !IsMarkdown(event.Name) || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "error", err)
		case <-timer.C:
			for path := range pending {
				w.sync(ctx, path)
			}
			clear(pending)
		}
	}
}

// sync replaces the chunks of path, or removes them if the file is gone.
func (w *Watcher) sync(ctx context.Context, path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		slog.Warn("resolving changed file", "path", path, "error", err)
		return
	}
	rel = filepath.ToSlash(rel)

	var docs []documents.Document
	if _, err := os.Stat(path); err == nil {
		docs, err = loadMarkdownFile(w.root, path, w.chunkSize)
		if err != nil {
			slog.Warn("re-ingesting markdown file", "path", path, "error", err)
			return
		}
	}

	removed, err := w.store.DeleteSource(ctx, rel)
	if err != nil {
		slog.Error("removing old chunks", "source", rel, "error", err)
		return
	}
	n, err := w.seeder.Seed(ctx, docs)
	if err != nil {
		slog.Error("re-ingesting markdown file", "source", rel, "error", err)
		return
	}
	slog.Info("re-ingested markdown file", "source", rel, "removed", removed, "written", n)
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
		}
		return nil
	})
}
