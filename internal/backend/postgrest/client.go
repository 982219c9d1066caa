// Package postgrest implements backend.Client against a PostgREST API such
// as the one Supabase exposes under /rest/v1.
package postgrest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/purriosity/purriosity-server/internal/backend"
)

// Options configures the client.
type Options struct {
	BaseURL string // project URL, e.g. https://xyz.supabase.co
	AnonKey string
	Timeout time.Duration
	Logger  *slog.Logger
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the REST API. Requests are never retried.
type Client struct {
	http    *resty.Client
	anonKey string
	logger  *slog.Logger
}

var _ backend.Client = (*Client)(nil)

// New creates a REST client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("apikey", opts.AnonKey).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{http: rc, anonKey: opts.AnonKey, logger: logger}
}

// Driver returns "rest".
func (c *Client) Driver() string { return "rest" }

// request prepares a call carrying the caller's token, or the anon key.
func (c *Client) request(ctx context.Context) *resty.Request {
	token := backend.AccessToken(ctx)
	if token == "" {
		token = c.anonKey
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetError(&backend.Error{})
}

// Select implements backend.Client.
func (c *Client) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var rows []backend.Row
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(encodeQuery(q)).
		SetResult(&rows).
		Get(tablePath(q.Table))
	if err := c.check("select", q.Table, resp, err); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []backend.Row{}
	}
	return rows, nil
}

// Insert implements backend.Client.
func (c *Client) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	if err := backend.From(table).Validate(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []backend.Row{}, nil
	}

	var out []backend.Row
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(rows).
		SetResult(&out).
		Post(tablePath(table))
	if err := c.check("insert", table, resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Update implements backend.Client.
func (c *Client) Update(ctx context.Context, q backend.Query, values backend.Row) ([]backend.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(q.Filters) == 0 && len(q.Or) == 0 {
		return nil, fmt.Errorf("refusing unfiltered update of %s", q.Table)
	}

	var out []backend.Row
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(encodeQuery(q)).
		SetBody(values).
		SetResult(&out).
		Patch(tablePath(q.Table))
	if err := c.check("update", q.Table, resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete implements backend.Client.
func (c *Client) Delete(ctx context.Context, q backend.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if len(q.Filters) == 0 && len(q.Or) == 0 {
		return fmt.Errorf("refusing unfiltered delete of %s", q.Table)
	}

	resp, err := c.request(ctx).
		SetQueryParamsFromValues(encodeQuery(q)).
		Delete(tablePath(q.Table))
	return c.check("delete", q.Table, resp, err)
}

// check turns transport failures and error statuses into errors.
func (c *Client) check(op, table string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "table", table, "error", err)
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr, ok := resp.Error().(*backend.Error)
	if !ok || apiErr == nil {
		apiErr = &backend.Error{}
	}
	apiErr.Status = resp.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}

	c.logger.Warn("backend returned error",
		"op", op,
		"table", table,
		"status", apiErr.Status,
		"code", apiErr.Code,
		"message", apiErr.Message,
	)
	return apiErr
}

func tablePath(table string) string {
	return "/rest/v1/" + table
}
