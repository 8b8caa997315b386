package store

import "errors"

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("store: entry not found")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("store: closed")

	// ErrMarshal is returned when value serialization fails.
	ErrMarshal = errors.New("store: failed to marshal value")

	// ErrUnmarshal is returned when value deserialization fails.
	ErrUnmarshal = errors.New("store: failed to unmarshal value")

	ErrEmptyConnectionURL = errors.New("store: empty redis connection URL")
	ErrFailedToParseURL   = errors.New("store: failed to parse redis connection URL")
	ErrConnectionFailed   = errors.New("store: failed to connect to redis")
	ErrHealthcheckFailed  = errors.New("store: redis healthcheck failed")
)
