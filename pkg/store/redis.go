package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by Redis with JSON-encoded values.
type Redis[V any] struct {
	client redis.UniversalClient
	opts   *options
}

// NewRedis creates a Redis-backed store. The client comes from OpenRedis and
// is owned by the caller.
//
//	reports := store.NewRedis[campaign.Report](client,
//	    store.WithPrefix("reports"),
//	    store.WithTTL(7*24*time.Hour),
//	)
func NewRedis[V any](client redis.UniversalClient, opts ...Option) *Redis[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Redis[V]{client: client, opts: o}
}

// Save implements Store.
func (r *Redis[V]) Save(ctx context.Context, key string, v V) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	// Redis treats zero as no expiry.
	return r.client.Set(ctx, r.key(key), data, max(r.opts.ttl, 0)).Err()
}

// Load implements Store.
func (r *Redis[V]) Load(ctx context.Context, key string) (V, error) {
	var zero V

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return decode[V](data)
}

// Delete implements Store.
func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Close is a no-op; the client is closed by its owner.
func (r *Redis[V]) Close() error {
	return nil
}

func (r *Redis[V]) key(k string) string {
	if r.opts.prefix == "" {
		return k
	}
	return r.opts.prefix + ":" + k
}

var _ Store[any] = (*Redis[any])(nil)
