package metrics

import (
	"context"
	"time"

	"github.com/purriosity/purriosity-server/internal/backend"
)

// instrumentedClient times every backend call.
type instrumentedClient struct {
	next    backend.Client
	metrics *Metrics
}

// InstrumentClient wraps next so each call is recorded in
// BackendDuration and, on failure, BackendErrors.
func (m *Metrics) InstrumentClient(next backend.Client) backend.Client {
	return &instrumentedClient{next: next, metrics: m}
}

func (c *instrumentedClient) observe(op, table string, start time.Time, err error) {
	c.metrics.BackendDuration.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.BackendErrors.WithLabelValues(op, table).Inc()
	}
}

func (c *instrumentedClient) Driver() string { return c.next.Driver() }

func (c *instrumentedClient) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	start := time.Now()
	rows, err := c.next.Select(ctx, q)
	c.observe("select", q.Table, start, err)
	return rows, err
}

func (c *instrumentedClient) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	start := time.Now()
	out, err := c.next.Insert(ctx, table, rows...)
	c.observe("insert", table, start, err)
	return out, err
}

func (c *instrumentedClient) Update(ctx context.Context, q backend.Query, values backend.Row) ([]backend.Row, error) {
	start := time.Now()
	out, err := c.next.Update(ctx, q, values)
	c.observe("update", q.Table, start, err)
	return out, err
}

func (c *instrumentedClient) Delete(ctx context.Context, q backend.Query) error {
	start := time.Now()
	err := c.next.Delete(ctx, q)
	c.observe("delete", q.Table, start, err)
	return err
}
