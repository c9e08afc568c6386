package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// Index wraps a Bleve index of quote documents.
//
// All public methods are safe for concurrent use. The mutex guards against
// operations racing a Rebuild.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the index.
type Options struct {
	DataPath string // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger
}

// mappingVersion is bumped whenever buildIndexMapping changes so stale
// on-disk indexes are rebuilt at startup.
const mappingVersion = "1"

const batchSize = 500

// New creates or opens an index. An on-disk index that cannot be opened or
// was built with another mapping version is removed and recreated.
func New(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.DataPath == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &Index{index: idx, logger: logger}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "quotes.bleve")
	versionPath := filepath.Join(opts.DataPath, "quotes.version")

	var idx bleve.Index
	if _, statErr := os.Stat(indexPath); statErr == nil {
		stored, readErr := os.ReadFile(versionPath)
		if readErr == nil && string(stored) == mappingVersion {
			var err error
			idx, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				idx = nil
			}
		} else {
			logger.Info("search index mapping changed, rebuilding", "new_version", mappingVersion)
		}
		if idx == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if idx == nil {
		var err error
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	}

	return &Index{index: idx, path: indexPath, logger: logger}, nil
}

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocuments adds or replaces docs in batches.
func (s *Index) IndexDocuments(docs []*QuoteDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexDocuments(docs)
}

func (s *Index) indexDocuments(docs []*QuoteDocument) error {
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// ReplaceUser drops every indexed quote of username and indexes docs in
// their place.
func (s *Index) ReplaceUser(username string, docs []*QuoteDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.deleteUser(username); err != nil {
		return err
	}
	return s.indexDocuments(docs)
}

// DeleteUser removes every indexed quote of username.
func (s *Index) DeleteUser(username string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleteUser(username)
}

func (s *Index) deleteUser(username string) error {
	ids, err := s.userDocumentIDs(username)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("delete quotes of %s: %w", username, err)
	}
	return nil
}

func (s *Index) userDocumentIDs(username string) ([]string, error) {
	q := bleve.NewTermQuery(username)
	q.SetField("username")

	var ids []string
	for from := 0; ; from += batchSize {
		req := bleve.NewSearchRequestOptions(q, batchSize, from, false)
		res, err := s.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("list quotes of %s: %w", username, err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < batchSize {
			return ids, nil
		}
	}
}

// DocumentCount returns the number of indexed quotes.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the index and starts empty. It blocks every other
// operation while it runs.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		idx bleve.Index
		err error
	)
	if s.path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if rmErr := os.RemoveAll(s.path); rmErr != nil {
			return fmt.Errorf("remove index: %w", rmErr)
		}
		idx, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = idx
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
