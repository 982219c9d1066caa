// Package response writes the JSON envelope outside of huma handlers, for
// middleware and the live search socket.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
)

// Version is the envelope format version, carried as "v".
const Version = 1

// Envelope is the success body shared with the huma API.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorEnvelope is the body of a coded error.
type ErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Wrap returns data in a success envelope.
func Wrap(data any) Envelope {
	return Envelope{Version: Version, Success: true, Data: data}
}

// WrapError returns err as an error envelope. Errors that carry no code
// become INTERNAL with a generic message.
func WrapError(err error) ErrorEnvelope {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return ErrorEnvelope{
			Version: Version,
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}
	return ErrorEnvelope{
		Version: Version,
		Code:    string(domainerrors.CodeInternal),
		Message: "internal server error",
	}
}

// JSON writes body with the given status code.
func JSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Success writes data in a 200 envelope.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, Wrap(data), logger)
}

// Error writes err as an error envelope with the status of its code.
func Error(w http.ResponseWriter, err error, logger *slog.Logger) {
	status := http.StatusInternalServerError
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		status = domainErr.HTTPStatus()
	} else if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	JSON(w, status, WrapError(err), logger)
}

// TooManyRequests writes a 429 RATE_LIMITED error.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, &domainerrors.Error{Code: domainerrors.CodeRateLimited, Message: message}, logger)
}
