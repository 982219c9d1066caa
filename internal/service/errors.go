package service

import (
	"errors"
	"net/http"

	"github.com/purriosity/purriosity-server/internal/backend"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
)

// Backend error codes the services react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// writeError converts a failed backend write into a domain error.
func writeError(err error, msg string) error {
	var be *backend.Error
	if errors.As(err, &be) {
		switch {
		case be.Code == pgUniqueViolation:
			return domainerrors.Wrap(err, domainerrors.CodeConflict, msg+": already exists")
		case be.Code == pgForeignKeyViolation:
			return domainerrors.Wrap(err, domainerrors.CodeNotFound, msg+": referenced row does not exist")
		case be.Status == http.StatusUnauthorized:
			return domainerrors.Wrap(err, domainerrors.CodeUnauthorized, msg)
		case be.Status == http.StatusForbidden:
			return domainerrors.Wrap(err, domainerrors.CodeForbidden, msg)
		}
	}
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return de
	}
	return domainerrors.Wrap(err, domainerrors.CodeUnavailable, msg)
}
