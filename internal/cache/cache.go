package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
)

const (
	transactionKeyPrefix = "txn:status:"
	announcementsKey     = "announcements:active"
)

// Cache is the explicitly owned Redis-backed cache passed into the services
// that need it. A nil *Cache is valid and disables caching, so the services
// never special-case a missing Redis deployment.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// New connects to Redis and verifies the connection
func New(redisURL string, defaultTTL time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Cache{client: client, defaultTTL: defaultTTL}, nil
}

// GetTransaction returns a cached transaction by correlation id
func (c *Cache) GetTransaction(ctx context.Context, correlationID string) (*models.Transaction, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, transactionKeyPrefix+correlationID).Bytes()
	if err != nil {
		return nil, false
	}
	var txn models.Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, false
	}
	return &txn, true
}

// SetTransaction caches a transaction. Only terminal transactions are worth
// caching — pending rows change underneath the poller.
func (c *Cache) SetTransaction(ctx context.Context, txn *models.Transaction) error {
	if c == nil || txn == nil || !txn.Status.Terminal() {
		return nil
	}
	data, err := json.Marshal(txn)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, transactionKeyPrefix+txn.CorrelationID, data, c.defaultTTL).Err()
}

// InvalidateTransaction drops the cached entry after a callback lands
func (c *Cache) InvalidateTransaction(ctx context.Context, correlationID string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, transactionKeyPrefix+correlationID).Err()
}

// GetAnnouncements returns the cached active announcement list
func (c *Cache) GetAnnouncements(ctx context.Context) ([]*models.Announcement, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, announcementsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var out []*models.Announcement
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

// SetAnnouncements caches the active announcement list
func (c *Cache) SetAnnouncements(ctx context.Context, announcements []*models.Announcement, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(announcements)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, announcementsKey, data, ttl).Err()
}

// InvalidateAnnouncements drops the announcement list after a write
func (c *Cache) InvalidateAnnouncements(ctx context.Context) error {
	if c == nil {
		return nil
	}
	err := c.client.Del(ctx, announcementsKey).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
