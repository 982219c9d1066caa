package main

import (
	"flag"
	"fmt"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/connect"
	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/search"
	"github.com/purriosity/purriosity-server/internal/service"
	"github.com/purriosity/purriosity-server/internal/validation"
)

// app is the subset of the server wiring the commands need. Events are not
// broadcast from the CLI; running servers pick changes up on their next read.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	client     backend.Client
	products   *service.ProductService
	categories *service.CategoryService
	blog       *service.BlogService

	conn  *connect.Connection
	index *search.SearchIndex
}

// configArgs forwards the persistent flags to the server's config loader
// so both binaries resolve settings the same way.
func configArgs() []string {
	args := []string{"-env-file", globalFlags.envFile, "-log-level", globalFlags.logLevel}
	if globalFlags.backend != "" {
		args = append(args, "-backend", globalFlags.backend)
	}
	if globalFlags.sqlitePath != "" {
		args = append(args, "-sqlite-path", globalFlags.sqlitePath)
	}
	if globalFlags.dataPath != "" {
		args = append(args, "-data-path", globalFlags.dataPath)
	}
	return args
}

// openApp loads configuration and opens the backend. withIndex also opens
// the blog search index, which holds a file lock while the server runs.
func openApp(withIndex bool) (*app, error) {
	cfg, err := config.Load(flag.NewFlagSet("purrctl", flag.ContinueOnError), configArgs())
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	conn, err := connect.Open(cfg.Backend, log.Component("backend"))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, client: conn.Client, conn: conn}

	if withIndex {
		a.index, err = search.NewSearchIndex(search.Options{
			DataPath: cfg.Search.IndexPath,
			Logger:   log.Component("search"),
		})
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open search index: %w", err)
		}
	}

	mapper := catalog.NewMapper(catalog.DefaultSynonyms())
	if path := cfg.Catalog.SynonymsFile; path != "" {
		syn, err := catalog.LoadSynonyms(path)
		if err != nil {
			a.close()
			return nil, err
		}
		mapper.SetSynonyms(syn)
	}

	v := validation.New()
	caps := service.Capabilities{ProductsHaveIsActive: cfg.Backend.ProductsHaveIsActive}
	a.products = service.NewProductService(conn.Client, mapper, nil, v, caps, log.Component("products"))
	a.categories = service.NewCategoryService(conn.Client, nil, v, log.Component("categories"))
	a.blog = service.NewBlogService(conn.Client, a.index, nil, v, log.Component("blog"))

	return a, nil
}

func (a *app) close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.log.Warn("failed to close search index", "error", err)
		}
	}
	if err := a.conn.Close(); err != nil {
		a.log.Warn("failed to close backend", "error", err)
	}
}
