// Package store keeps uploaded contact sets and finished campaign reports.
//
// Two implementations share the Store interface:
//
//   - Memory: in-process map with TTL expiry, LRU bound and a janitor goroutine
//   - Redis: go-redis backed, JSON values, optional key prefix
//
// # Usage
//
//	client, err := store.OpenRedis(ctx, store.RedisConfig{URL: os.Getenv("REDIS_URL")})
//	if err != nil {
//		return err
//	}
//	reports := store.NewRedis[campaign.Report](client, store.WithPrefix("reports"))
//
//	uploads := store.NewMemory[*contacts.Set](store.WithTTL(time.Hour))
//	defer uploads.Close()
//
// Load returns ErrNotFound for missing or expired keys.
package store
