// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across storage/api/service layers.
var (
	// ErrValidation indicates input rejected locally before any network call.
	ErrValidation = errors.New("validation")

	// ErrUnauthorized indicates the backend answered 401 (missing or invalid authorization).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnauthenticated indicates there is no valid local session.
	ErrUnauthenticated = errors.New("not signed in")

	// ErrTransport indicates the request never produced a response (network failure).
	ErrTransport = errors.New("transport failure")

	// ErrBadResponse indicates a 2xx response that does not match the contract.
	ErrBadResponse = errors.New("bad response")

	// ErrBusy indicates another authentication operation is already in flight.
	ErrBusy = errors.New("busy")
)
