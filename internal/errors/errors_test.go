package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeAuthRequired, http.StatusUnauthorized},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeConflict, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("product %s not found", "p-1")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrValidation))
	assert.Equal(t, "product p-1 not found", err.Error())
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeUnavailable, "backend call failed")

	assert.True(t, Is(err, ErrUnavailable))
	assert.Equal(t, cause, Unwrap(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAuthRequired_CarriesLoginURL(t *testing.T) {
	err := AuthRequired("/login?redirect=%2Fproduct%2Fp-1")

	var domainErr *Error
	require.True(t, As(err, &domainErr))
	assert.Equal(t, CodeAuthRequired, domainErr.Code)

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "/login?redirect=%2Fproduct%2Fp-1", details["login_url"])
}

func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"name": "is required"})

	assert.NotNil(t, err.Details)
	assert.Nil(t, ErrValidation.Details)
}
