package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}},
		{name: "created response", status: "201", input: map[string]string{"id": "123"}},
		{name: "no content response", status: "204", input: nil},
		{name: "plain error", status: "500", input: errors.New("internal error")},
		{
			name:   "domain error with details",
			status: "401",
			input: &APIError{
				Code:    "AUTH_REQUIRED",
				Message: "authentication required",
				Details: map[string]string{"login_url": "/login"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			jsonBytes, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(jsonBytes, &envelope))

			require.Contains(t, envelope, "v")
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"name": "Kratzbaum"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Empty(t, envelope.Error)
}

func TestEnvelopeTransformer_ErrorWithCode(t *testing.T) {
	apiErr := &APIError{Code: "FORBIDDEN", Message: "admin access required"}

	result, err := EnvelopeTransformer(nil, "403", apiErr)
	require.NoError(t, err)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok)
	assert.False(t, envelope.Success)
	assert.Equal(t, "FORBIDDEN", envelope.Code)
	assert.Equal(t, "admin access required", envelope.Message)
}

func TestEnvelopeTransformer_PassesEnvelopesThrough(t *testing.T) {
	in := APIEnvelope{Version: EnvelopeVersion, Success: true, Data: 1}

	result, err := EnvelopeTransformer(nil, "200", in)
	require.NoError(t, err)
	assert.Equal(t, in, result)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "single forwarded", headers: map[string]string{"X-Forwarded-For": "203.0.113.8"}, remote: "10.0.0.2:1234", want: "203.0.113.8"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, remote: "10.0.0.2:1234", want: "198.51.100.4"},
		{name: "remote addr", remote: "192.0.2.10:5555", want: "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestIsMutation(t *testing.T) {
	assert.True(t, isMutation(httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/purr", nil)))
	assert.True(t, isMutation(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/p1", nil)))
	assert.False(t, isMutation(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)))
	assert.False(t, isMutation(httptest.NewRequest(http.MethodPost, "/metrics", nil)))
}

func TestLoginURL(t *testing.T) {
	s := &Server{opts: Options{PublicURL: "https://purriosity.example/", LoginPath: "/login"}}

	assert.Equal(t, "https://purriosity.example/login?redirect=%2Fproduct%2Fp1", s.loginURL("/product/p1", "/"))
	assert.Equal(t, "https://purriosity.example/login?redirect=%2Fsaved", s.loginURL("https://evil.example", "/saved"))
	assert.Equal(t, "https://purriosity.example/login?redirect=%2Fsaved", s.loginURL("//evil.example", "/saved"))
	assert.Equal(t, "https://purriosity.example/login?redirect=%2Fsaved", s.loginURL("", "/saved"))
	assert.Equal(t, "https://purriosity.example/login?redirect=%2Fsaved", s.loginURL(`/\evil.example`, "/saved"))
	assert.Equal(t, "https://purriosity.example/login?redirect=%2Fsaved", s.loginURL("/\t/evil.example", "/saved"))
	assert.Equal(t, "https://purriosity.example/login?redirect=%2F", s.loginURL("/", "/saved"))
}

func TestRateLimit_Mutations(t *testing.T) {
	ts := setupTestServer(t, func(o *Options) { o.MutationsPerMinute = 1 })

	// Anonymous toggles are rejected by the handler but still count.
	for range defaultMutationBurst {
		resp := ts.api.Post("/api/v1/products/p1/purr")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := ts.api.Post("/api/v1/products/p1/purr")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	env := decodeError(t, resp)
	assert.Equal(t, "RATE_LIMITED", env.Code)

	// Reads are never limited.
	assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/categories").Code)
}
