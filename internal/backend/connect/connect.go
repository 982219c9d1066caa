// Package connect chooses the backend client from configuration.
package connect

import (
	"fmt"
	"log/slog"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/postgrest"
	"github.com/purriosity/purriosity-server/internal/backend/sqlite"
	"github.com/purriosity/purriosity-server/internal/config"
)

// Connection is an opened backend client and its cleanup.
type Connection struct {
	Client backend.Client
	close  func() error
}

// Close releases driver resources.
func (c *Connection) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// Open returns the client selected by cfg.Driver.
//
// With "auto" or "rest", missing credentials never fail startup: the null
// client is returned and a warning is logged, so read paths render empty.
func Open(cfg config.BackendConfig, logger *slog.Logger) (*Connection, error) {
	switch cfg.Driver {
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		logger.Info("using sqlite backend", "path", cfg.SQLitePath)
		return &Connection{Client: store, close: store.Close}, nil

	case config.BackendAuto, config.BackendREST, "":
		if !cfg.Usable() {
			logger.Warn("backend credentials missing, reads return no data and writes fail",
				"url_set", cfg.URL != "",
				"key_set", cfg.AnonKey != "",
			)
			return &Connection{Client: backend.Null{}}, nil
		}
		client := postgrest.New(postgrest.Options{
			BaseURL: cfg.URL,
			AnonKey: cfg.AnonKey,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		logger.Info("using rest backend", "url", cfg.URL)
		return &Connection{Client: client}, nil

	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Driver)
	}
}
