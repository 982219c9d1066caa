package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/connect"
	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/metrics"
	"github.com/purriosity/purriosity-server/internal/sse"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	m := metrics.New()
	m.RegisterGaugeFunc("sse_clients", "Connected event stream clients.", func() float64 {
		return float64(sseHandle.ClientCount())
	})
	return m, nil
}

// BackendHandle wraps the backend client with shutdown capability.
type BackendHandle struct {
	backend.Client
	conn *connect.Connection
}

// Shutdown implements do.Shutdownable.
func (h *BackendHandle) Shutdown() error {
	return h.conn.Close()
}

// ProvideBackend opens the configured backend and instruments it.
func ProvideBackend(i do.Injector) (*BackendHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	conn, err := connect.Open(cfg.Backend, log.Component("backend"))
	if err != nil {
		return nil, err
	}

	return &BackendHandle{
		Client: m.InstrumentClient(conn.Client),
		conn:   conn,
	}, nil
}
