package service

import (
	"errors"
	"fmt"

	"parcel-delivery-service/internal/repository"
)

// Business errors; the controller maps each one onto an HTTP status.
var (
	ErrUnauthenticated  = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden access")
	ErrNotFound         = errors.New("not found")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUpstreamFailure  = errors.New("upstream failure")
)

// ErrInvalidToken is returned by identity verifiers when they reject a token.
var ErrInvalidToken = errors.New("invalid token")

// storeErr translates repository errors into business errors. what names the
// record for NotFound messages.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrInvalidID):
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, repository.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
