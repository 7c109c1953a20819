package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL applies when the configured TTL is zero
	DefaultCacheTTL = 5 * time.Minute
	// MaxCacheTTL bounds how long a stale listing can survive a missed invalidation
	MaxCacheTTL = time.Hour
	// generationTTL outlives any listing so a reset counter cannot match an old read
	generationTTL = 24 * time.Hour
)

// EntryListCache caches each user's full listing in Redis as JSON.
type EntryListCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEntryListCache(client *redis.Client, ttl time.Duration) *EntryListCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	return &EntryListCache{client: client, ttl: ttl}
}

// GetEntries reports a miss, not an error, when the key is absent.
func (c *EntryListCache) GetEntries(ctx context.Context, userID string) ([]models.Entry, bool, error) {
	val, err := c.client.Get(ctx, entriesCacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entries []models.Entry
	if err := json.Unmarshal(val, &entries); err != nil {
		// Unreadable payloads are dropped so the next read repopulates them.
		_ = c.client.Del(ctx, entriesCacheKey(userID)).Err()
		return nil, false, err
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	for i := range entries {
		entries[i].Normalize()
	}
	return entries, true, nil
}

// Generation returns the user's listing generation. Every Invalidate bumps it.
func (c *EntryListCache) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationCacheKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetEntries stores the listing only while the generation still matches the
// one read before the store query. A stale snapshot is silently discarded.
func (c *EntryListCache) SetEntries(ctx context.Context, userID string, generation int64, entries []models.Entry) error {
	jsonData, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	genKey := generationCacheKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entriesCacheKey(userID), jsonData, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate bumps the generation and drops the listing in one transaction.
func (c *EntryListCache) Invalidate(ctx context.Context, userID string) error {
	genKey := generationCacheKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, entriesCacheKey(userID))
		return nil
	})
	return err
}

// CacheKey generates a cache key for a specific resource
func CacheKey(resource string, identifier string) string {
	return fmt.Sprintf("%s:%s", resource, identifier)
}

func entriesCacheKey(userID string) string {
	return CacheKeyPrefix + CacheKey("entries", userID)
}

func generationCacheKey(userID string) string {
	return CacheKeyPrefix + CacheKey("entries_gen", userID)
}
