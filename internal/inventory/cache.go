package inventory

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:"

// StockCache is a read-side cache of product stock counts for availability
// listings. It is never authoritative; the database row decides all commits.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStockCache(client *redis.Client, ttl time.Duration) *StockCache {
	return &StockCache{client: client, ttl: ttl}
}

// Get returns the cached stock count and whether it was present.
func (c *StockCache) Get(ctx context.Context, productID int64) (int, bool, error) {
	val, err := c.client.Get(ctx, stockKey(productID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	stock, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, err
	}
	return stock, true, nil
}

func (c *StockCache) Set(ctx context.Context, productID int64, stock int) error {
	return c.client.Set(ctx, stockKey(productID), stock, c.ttl).Err()
}

// Forget drops a cached count after a committed sale so the next read
// refills from the database.
func (c *StockCache) Forget(ctx context.Context, productID int64) error {
	return c.client.Del(ctx, stockKey(productID)).Err()
}

func stockKey(productID int64) string {
	return stockKeyPrefix + strconv.FormatInt(productID, 10)
}
