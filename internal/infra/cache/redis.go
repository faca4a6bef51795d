package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"marketstream/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "marketstream:"

// Cache wraps the redis connection used for last-price and last-candle
// lookups. Values are written by the stream recorder and read by the REST
// endpoints; the streaming core itself never depends on them.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to redis. No round trip happens here; the first
// command surfaces connectivity errors.
func NewCache(addr, password string, db int) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: 24 * time.Hour,
	}
}

// IsMiss reports whether an error means the key simply was not set.
func IsMiss(err error) bool {
	return err == redis.Nil
}

// SetLastPrice stores the most recent trade price for a symbol.
func (c *Cache) SetLastPrice(ctx context.Context, symbol string, price float64) error {
	key := keyPrefix + "live_price:" + symbol
	value := strconv.FormatFloat(price, 'f', -1, 64)
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// LastPrice returns the stored price string for a symbol. A missing key
// yields an error satisfying IsMiss.
func (c *Cache) LastPrice(ctx context.Context, symbol string) (string, error) {
	return c.client.Get(ctx, keyPrefix+"live_price:"+symbol).Result()
}

// SetLastCandle stores the most recently closed candle for a symbol as JSON.
func (c *Cache) SetLastCandle(ctx context.Context, symbol string, candle domain.CandleState) error {
	data, err := json.Marshal(candle)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+"last_candle:"+symbol, data, c.ttl).Err()
}

// LastCandle returns the stored candle JSON for a symbol.
func (c *Cache) LastCandle(ctx context.Context, symbol string) (string, error) {
	return c.client.Get(ctx, keyPrefix+"last_candle:"+symbol).Result()
}
