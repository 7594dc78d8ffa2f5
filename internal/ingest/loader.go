// Package ingest loads documents from a docs directory and splits them into
// passages for indexing. Per-file failures are warnings, never fatal: the
// service must start even when the directory is empty or missing.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/rag"
)

// DefaultExtensions lists the file types loaded as training documents.
var DefaultExtensions = []string{".txt", ".md", ".markdown"}

// Loader enumerates a docs directory recursively and turns readable files
// into passages.
type Loader struct {
	root       string
	chunker    *Chunker
	workers    int
	extensions map[string]struct{}
}

// NewLoader creates a loader over root. workers bounds parallel file loading
// (default 4). extensions may be nil to use DefaultExtensions.
func NewLoader(root string, chunker *Chunker, workers int, extensions []string) *Loader {
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	if workers <= 0 {
		workers = 4
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}
	return &Loader{
		root:       root,
		chunker:    chunker,
		workers:    workers,
		extensions: extSet,
	}
}

// Load walks the docs directory and returns one passage per chunk of every
// readable document. A missing or empty directory yields an empty set.
// Ordering among passages is unspecified.
func (l *Loader) Load(ctx context.Context) ([]rag.Passage, error) {
	if _, err := os.Stat(l.root); err != nil {
		if os.IsNotExist(err) {
			log.Printf("docs directory %s does not exist, starting with no passages", l.root)
			return []rag.Passage{}, nil
		}
		return nil, fmt.Errorf("failed to stat docs directory: %w", err)
	}

	var paths []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("warning: skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if l.watched(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk docs directory: %w", err)
	}

	var (
		mu       sync.Mutex
		passages []rag.Passage
		wg       sync.WaitGroup
		jobs     = make(chan string)
	)

	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if ctx.Err() != nil {
					continue
				}
				loaded, err := l.LoadFile(path)
				if err != nil {
					log.Printf("warning: skipping unreadable document %s: %v", path, err)
					continue
				}
				mu.Lock()
				passages = append(passages, loaded...)
				mu.Unlock()
			}
		}()
	}

	for _, path := range paths {
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return passages, nil
}

// LoadFile reads and chunks a single document. The originating file path is
// recorded as each passage's source.
func (l *Loader) LoadFile(path string) ([]rag.Passage, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, nil
	}

	chunks := l.chunker.Chunk(text)
	passages := make([]rag.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		passages = append(passages, rag.Passage{
			ID:     passageID(path, i),
			Text:   chunk,
			Source: path,
		})
	}
	return passages, nil
}

// Watched reports whether the loader handles files with this path's extension.
func (l *Loader) Watched(path string) bool {
	return l.watched(path)
}

func (l *Loader) watched(path string) bool {
	_, ok := l.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// passageID derives a deterministic ID from the source path and chunk index,
// so re-ingesting a file produces the same IDs.
func passageID(path string, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", path, index)))
	return hex.EncodeToString(hash[:8]) + fmt.Sprintf("-%d", index)
}
