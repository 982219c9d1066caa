package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// SearchIndex wraps the Bleve index of blog posts.
// All methods are safe for concurrent use; Rebuild blocks everything else.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses stderr if nil)
}

// mappingVersion is bumped whenever buildIndexMapping changes; a mismatch
// on startup discards the index so it is rebuilt with the new mapping.
const mappingVersion = "1"

// NewSearchIndex opens the index under opts.DataPath, creating it when
// missing, unreadable, or built with an older mapping.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	indexPath := filepath.Join(opts.DataPath, "blog.bleve")
	versionPath := filepath.Join(opts.DataPath, "blog.version")

	var index bleve.Index
	stale := false

	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("blog index has no version file, rebuilding", "version", mappingVersion)
			stale = true
		case string(existing) != mappingVersion:
			logger.Info("blog index mapping changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
			stale = true
		default:
			opened, err := bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open blog index, recreating", "path", indexPath, "error", err)
				stale = true
			} else {
				index = opened
			}
		}
	}

	if stale {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	}

	if index == nil {
		created, err := bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		index = created
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write blog index version file", "error", err)
		}
		logger.Info("created blog index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened blog index", "path", indexPath)
	}

	return &SearchIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument indexes a single document, replacing any with the same slug.
func (s *SearchIndex) IndexDocument(doc *BlogDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.Slug, doc.ToMap())
}

// IndexDocuments indexes docs in batches of 500.
func (s *SearchIndex) IndexDocuments(docs []*BlogDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.Slug, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.Slug, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteDocument removes the post with slug from the index.
func (s *SearchIndex) DeleteDocument(slug string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(slug)
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates an empty one.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt blog index", "path", s.path)

	return nil
}

// ReplaceAll rebuilds the index so it holds exactly docs.
func (s *SearchIndex) ReplaceAll(docs []*BlogDocument) error {
	if err := s.Rebuild(); err != nil {
		return err
	}
	return s.IndexDocuments(docs)
}
