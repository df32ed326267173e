package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"storefront/internal/domain"
)

const defaultFeedTTL = 60 * time.Second

// Connect opens a redis client and verifies it with a ping.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewFeedCache(client *redis.Client, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = defaultFeedTTL
	}
	return &FeedCache{client: client, baseTTL: ttl}
}

// FeedCache stores storefront feeds keyed by business slug.
type FeedCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *FeedCache) Get(ctx context.Context, slug string) (*domain.StoreFeed, error) {
	data, err := r.client.Get(ctx, feedKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var feed domain.StoreFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("unmarshal feed failed: %w", err)
	}
	return &feed, nil
}

func (r *FeedCache) Set(ctx context.Context, slug string, feed *domain.StoreFeed) error {
	data, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("marshal feed failed: %w", err)
	}

	if err := r.client.Set(ctx, feedKey(slug), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *FeedCache) Delete(ctx context.Context, slug string) error {
	if err := r.client.Del(ctx, feedKey(slug)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// ttl spreads expiries over an extra quarter of the base TTL.
func (r *FeedCache) ttl() time.Duration {
	spread := int64(r.baseTTL / 4)
	if spread <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + time.Duration(rand.Int63n(spread))
}

func feedKey(slug string) string {
	return fmt.Sprintf("feed:%s", slug)
}
