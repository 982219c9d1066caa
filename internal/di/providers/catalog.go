package providers

import (
	"context"
	"os"

	"github.com/samber/do/v2"

	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/logger"
)

// ProvideMapper provides the catalog mapper with the configured synonym table.
// A broken synonyms file falls back to the built-in table.
func ProvideMapper(i do.Injector) (*catalog.Mapper, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	syn := catalog.DefaultSynonyms()
	if path := cfg.Catalog.SynonymsFile; path != "" {
		loaded, err := catalog.LoadSynonyms(path)
		if err != nil {
			log.Warn("failed to load tag synonyms, using built-in table", "path", path, "error", err)
		} else {
			syn = loaded
			log.Info("tag synonyms loaded", "path", path)
		}
	}

	return catalog.NewMapper(syn), nil
}

// SynonymWatcherHandle wraps the synonyms file watcher. Watcher is nil
// when watching is disabled.
type SynonymWatcherHandle struct {
	Watcher *catalog.SynonymWatcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SynonymWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideSynonymWatcher reloads the synonyms file into the mapper on change.
func ProvideSynonymWatcher(i do.Injector) (*SynonymWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	mapper := do.MustInvoke[*catalog.Mapper](i)

	path := cfg.Catalog.SynonymsFile
	if path == "" || !cfg.Catalog.WatchSynonyms {
		return &SynonymWatcherHandle{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn("tag synonyms file not found, not watching", "path", path)
		return &SynonymWatcherHandle{}, nil
	}

	w, err := catalog.NewSynonymWatcher(path, mapper, log.Component("synonyms"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	log.Info("watching tag synonyms", "path", path)

	return &SynonymWatcherHandle{Watcher: w, cancel: cancel}, nil
}
