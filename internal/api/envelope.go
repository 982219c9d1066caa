package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/purriosity/purriosity-server/internal/http/response"
)

// EnvelopeVersion is the response envelope format version, sent as "v".
// Clients reject envelopes with a version they do not know.
const EnvelopeVersion = response.Version

// APIEnvelope wraps every success response and errors without a code.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v" doc:"Envelope format version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload"`
	Error   string `json:"error,omitempty" doc:"Error message"`
}

// APIErrorEnvelope wraps coded errors, keeping code and details at the top
// level so clients can branch on them.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v" doc:"Envelope format version"`
	Success bool   `json:"success" doc:"Always false"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in
// the API envelope. Register it on the huma config before creating the API.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case APIEnvelope, APIErrorEnvelope:
		return v, nil
	case *APIError:
		if body.Code == "" {
			return APIEnvelope{Version: EnvelopeVersion, Error: body.Message}, nil
		}
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    body.Code,
			Message: body.Message,
			Details: body.Details,
		}, nil
	case error:
		var apiErr *APIError
		if errors.As(body, &apiErr) {
			return EnvelopeTransformer(nil, status, apiErr)
		}
		return APIEnvelope{Version: EnvelopeVersion, Error: body.Error()}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: len(status) > 0 && status[0] == '2',
		Data:    v,
	}, nil
}
