package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/purriosity/purriosity-server/internal/api"
	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/metrics"
	"github.com/purriosity/purriosity-server/internal/service"
)

// Version is stamped into API envelopes and the health report.
var Version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	backendHandle := do.MustInvoke[*BackendHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	verifier := do.MustInvoke[*auth.TokenVerifier](i)
	storage := do.MustInvoke[*MediaStorage](i)

	services := &api.Services{
		Products:   do.MustInvoke[*service.ProductService](i),
		Categories: do.MustInvoke[*service.CategoryService](i),
		Search:     do.MustInvoke[*service.SearchService](i),
		Purr:       do.MustInvoke[*service.PurrService](i),
		Saved:      do.MustInvoke[*service.SavedService](i),
		Blog:       do.MustInvoke[*service.BlogService](i),
		Admin:      do.MustInvoke[*service.AdminService](i),
		Uploader:   storage.Uploader,
	}

	infra := api.Infrastructure{
		Backend:    backendHandle.Client,
		Verifier:   verifier,
		Events:     sseHandle.Manager,
		BlogIndex:  indexHandle.SearchIndex,
		Metrics:    m,
		LocalMedia: storage.Local,
	}

	handler := api.NewServer(services, infra, api.Options{
		Version:        Version,
		PublicURL:      cfg.Server.PublicURL,
		LoginPath:      cfg.Auth.LoginPath,
		CORSOrigins:    cfg.Server.CORSOrigins,
		SearchDebounce: cfg.Search.Debounce,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
