package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Store keeps values of one type under string keys for a bounded time.
type Store[V any] interface {
	// Save stores v under key, replacing any previous value.
	Save(ctx context.Context, key string, v V) error

	// Load returns the value under key or ErrNotFound.
	Load(ctx context.Context, key string) (V, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases background resources.
	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	prefix          string
	ttl             time.Duration
	cleanupInterval time.Duration
	maxEntries      int
}

func defaultOptions() *options {
	return &options{
		ttl:             24 * time.Hour,
		cleanupInterval: time.Minute,
	}
}

// WithTTL sets how long saved values live. Negative means forever.
// Default: 24 hours.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d != 0 {
			o.ttl = d
		}
	}
}

// WithPrefix namespaces Redis keys as "prefix:key".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithCleanupInterval sets how often the memory store drops expired entries.
// Zero disables the janitor. Default: 1 minute.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = d
	}
}

// WithMaxEntries bounds the memory store; the least recently used entry is
// evicted when full. Zero means unlimited.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

func encode[V any](v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func decode[V any](data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}
