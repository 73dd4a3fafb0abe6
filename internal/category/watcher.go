package category

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a category file into a Store whenever it changes. A
// file that fails to parse leaves the previous Map in place.
type Watcher struct {
	path     string
	store    *Store
	logger   *slog.Logger
	onReload func(ctx context.Context, ok bool)
}

// NewWatcher creates a Watcher for path. onReload may be nil.
func NewWatcher(path string, store *Store, logger *slog.Logger, onReload func(ctx context.Context, ok bool)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		store:    store,
		logger:   logger.With(slog.String("component", "category_watcher")),
		onReload: onReload,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// editors that replace the file by rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	target := filepath.Clean(w.path)
	w.logger.InfoContext(ctx, "watching category file", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.Reload(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.ErrorContext(ctx, "watcher error", slog.String("error", err.Error()))
		}
	}
}

// Reload reads the file once and swaps it in on success.
func (w *Watcher) Reload(ctx context.Context) bool {
	m, err := LoadFile(w.path)
	if err != nil {
		w.logger.ErrorContext(ctx, "category reload failed, keeping previous table",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
		w.notify(ctx, false)
		return false
	}

	w.store.Replace(m)
	w.logger.InfoContext(ctx, "category table reloaded",
		slog.String("path", w.path),
		slog.Int("labels", m.Len()),
		slog.Int("duplicates", len(m.Duplicates())),
	)
	LogDuplicates(ctx, w.logger, m)
	w.notify(ctx, true)
	return true
}

func (w *Watcher) notify(ctx context.Context, ok bool) {
	if w.onReload != nil {
		w.onReload(ctx, ok)
	}
}

// LogDuplicates warns once per redefined label.
func LogDuplicates(ctx context.Context, logger *slog.Logger, m *Map) {
	for _, d := range m.Duplicates() {
		logger.WarnContext(ctx, "category label defined more than once, last definition wins",
			slog.String("label", d.Label),
			slog.String("previous", d.Previous),
			slog.String("effective", d.Effective),
		)
	}
}
