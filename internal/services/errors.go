package services

import (
	stderrors "errors"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/repository"
)

// DefaultMaxAttempts bounds the read-check-write loop of every status change
const DefaultMaxAttempts = 5

// Service errors
var (
	ErrMissingDelegateID = errors.Validation("delegate id is required")
	ErrEmptyCatalog      = errors.Validation("committee catalog is empty")
	ErrCatalogFrozen     = errors.Conflict("committee catalog is frozen while delegates are assigned")
)

// notFoundOr maps repository.ErrNotFound to a NotFound error naming what was
// missing and anything else to an internal error.
func notFoundOr(err error, format string, args ...interface{}) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFoundf(format, args...)
	}
	return errors.Internal(err)
}
