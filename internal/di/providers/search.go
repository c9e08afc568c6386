package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/logger"
	"github.com/icberg-810202/tilecatread/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex opens the quote index under the data directory, or in
// memory when the cache is configured to be memory-only.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dataPath := filepath.Join(cfg.App.DataDir, "search")
	if cfg.Cache.InMemory {
		dataPath = ""
	}

	index, err := search.New(search.Options{
		DataPath: dataPath,
		Logger:   log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Debug("search index initialized", "path", dataPath, "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}
