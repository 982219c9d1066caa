package postgrest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/purriosity/purriosity-server/internal/backend"
)

// Storage uploads objects to the backend's storage API.
type Storage struct {
	http    *resty.Client
	baseURL string
	bucket  string
	anonKey string
}

// NewStorage creates a storage client for bucket.
func NewStorage(opts Options, bucket string) *Storage {
	c := New(opts)
	return &Storage{
		http:    c.http,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		bucket:  bucket,
		anonKey: opts.AnonKey,
	}
}

// Put uploads data under key and returns its public URL.
// Existing objects are not overwritten.
func (s *Storage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	token := backend.AccessToken(ctx)
	if token == "" {
		token = s.anonKey
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(data).
		SetError(&storageError{}).
		Post("/storage/v1/object/" + s.bucket + "/" + key)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if resp.IsError() {
		msg := http.StatusText(resp.StatusCode())
		if e, ok := resp.Error().(*storageError); ok && e.Message != "" {
			msg = e.Message
		}
		return "", &backend.Error{Status: resp.StatusCode(), Code: "storage", Message: msg}
	}

	return s.PublicURL(key), nil
}

// PublicURL returns the URL under which key is served.
func (s *Storage) PublicURL(key string) string {
	return s.baseURL + "/storage/v1/object/public/" + s.bucket + "/" + key
}

// Name returns "backend".
func (s *Storage) Name() string { return "backend" }

type storageError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
