package openfeed_errors

import "errors"

// Common errors
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTooLarge      = errors.New("file too large")
	ErrRateLimited   = errors.New("rate limited")
	ErrAlreadyExists = errors.New("already exists")
)

// Messaging and cache errors
var (
	// ErrBrokerUnavailable is fatal at startup: a service that depends on
	// messaging must not accept traffic without a broker connection.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrPublish is transient and never surfaced to HTTP callers; the
	// primary write has already committed when publishing fails.
	ErrPublish = errors.New("publish failed")

	// ErrHandler marks a consumer-side handler failure. The message stays
	// pending and is redelivered by the reclaim loop.
	ErrHandler = errors.New("event handler failed")
)
