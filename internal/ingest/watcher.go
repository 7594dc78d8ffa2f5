package ingest

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/rag"
)

// Watcher re-indexes documents as they change on disk, so the index can be
// refreshed while the service answers live queries. Newly indexed passages
// become visible eventually; in-flight retrievals are never blocked.
type Watcher struct {
	watcher  *fsnotify.Watcher
	loader   *Loader
	embedder rag.Embedder
	store    rag.VectorStore
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher over the loader's docs directory.
func NewWatcher(loader *Loader, embedder rag.Embedder, store rag.VectorStore, debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:  w,
		loader:   loader,
		embedder: embedder,
		store:    store,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Watch registers the docs tree and processes events until ctx is done.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addTree(w.loader.root); err != nil {
		return err
	}

	go func() {
		defer w.watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(ctx, event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("warning: docs watcher error: %v", err)
			}
		}
	}()

	return nil
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create):
		// fsnotify is not recursive: new subdirectories must be added.
		// addTree is a no-op for plain files.
		_ = w.addTree(event.Name)
		if w.loader.Watched(event.Name) {
			w.scheduleReindex(ctx, event.Name)
		}
	case event.Op.Has(fsnotify.Write):
		if w.loader.Watched(event.Name) {
			w.scheduleReindex(ctx, event.Name)
		}
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		if w.loader.Watched(event.Name) {
			if err := w.store.DeleteBySource(ctx, event.Name); err != nil {
				log.Printf("warning: failed to remove passages for %s: %v", event.Name, err)
			}
		}
	}
}

// scheduleReindex debounces bursts of writes to the same file.
func (w *Watcher) scheduleReindex(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.reindex(ctx, path)
	})
}

func (w *Watcher) reindex(ctx context.Context, path string) {
	passages, err := w.loader.LoadFile(path)
	if err != nil {
		log.Printf("warning: skipping unreadable document %s: %v", path, err)
		return
	}

	if err := w.store.DeleteBySource(ctx, path); err != nil {
		log.Printf("warning: failed to replace passages for %s: %v", path, err)
		return
	}
	if len(passages) == 0 {
		return
	}

	opts := rag.DefaultIndexOptions()
	if err := rag.IndexPassages(ctx, passages, w.embedder, w.store, opts); err != nil {
		log.Printf("warning: failed to reindex %s: %v", path, err)
		return
	}
	log.Printf("reindexed %s (%d passages)", path, len(passages))
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				log.Printf("warning: cannot watch %s: %v", path, err)
			}
		}
		return nil
	})
}
